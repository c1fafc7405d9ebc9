package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"p3if/pkg/framework"
)

func TestRunWritesDocumentToStdout(t *testing.T) {
	t.Setenv("P3IF_STORAGE_DRIVER", "memory")
	var out bytes.Buffer
	stdout = &out
	defer func() { stdout = os.Stdout }()

	if err := run(context.Background(), false); err != nil {
		t.Fatalf("run: %v", err)
	}
	doc, err := framework.DecodeDocument(bytes.TrimSpace(out.Bytes()))
	if err != nil {
		t.Fatalf("output not a document: %v", err)
	}
	if doc.Metadata.SchemaVersion != framework.SchemaVersion {
		t.Fatalf("schema version = %q", doc.Metadata.SchemaVersion)
	}
}

func TestRunArchivesDocument(t *testing.T) {
	t.Setenv("P3IF_STORAGE_DRIVER", "memory")
	t.Setenv("P3IF_BLOB_DRIVER", "memory")
	var out bytes.Buffer
	stdout = &out
	defer func() { stdout = os.Stdout }()

	if err := run(context.Background(), true); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "archived exports/p3if-") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunRejectsUnknownDriver(t *testing.T) {
	t.Setenv("P3IF_STORAGE_DRIVER", "etcd")
	if err := run(context.Background(), false); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
