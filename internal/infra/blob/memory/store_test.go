package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"p3if/internal/blob/core"
)

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("driver = %s", s.Driver())
	}

	info, err := s.Put(ctx, "exports/doc.json", strings.NewReader("payload"), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 {
		t.Fatalf("size = %d", info.Size)
	}
	if _, err := s.Put(ctx, "exports/doc.json", strings.NewReader("other"), core.PutOptions{}); err == nil {
		t.Fatal("overwrite allowed")
	}

	got, rc, err := s.Get(ctx, "exports/doc.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "payload" || got.ContentType != "application/json" {
		t.Fatalf("get = %q %+v", body, got)
	}

	if _, err := s.Head(ctx, "missing"); err == nil {
		t.Fatal("head on missing key succeeded")
	}

	deleted, err := s.Delete(ctx, "exports/doc.json")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	if deleted, _ := s.Delete(ctx, "exports/doc.json"); deleted {
		t.Fatal("second delete reported true")
	}
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, key := range []string{"exports/b", "exports/a", "other/c"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "exports/a" || infos[1].Key != "exports/b" {
		t.Fatalf("list = %+v", infos)
	}
}

func TestPresignUnsupported(t *testing.T) {
	if _, err := New().PresignURL(context.Background(), "k", core.SignedURLOptions{}); err != core.ErrUnsupported {
		t.Fatalf("presign = %v, want ErrUnsupported", err)
	}
}
