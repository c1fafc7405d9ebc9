package framework

import (
	"strings"
	"testing"
	"time"
)

func TestDocumentEncodeDecode(t *testing.T) {
	prop := "p1"
	doc := Document{
		Patterns: []Pattern{{ID: "p1", Type: PatternProperty, Name: "encryption", Domain: "security"}},
		Relationships: []Relationship{
			{ID: "r1", PropertyID: &prop, Strength: 0.8, Confidence: 0.9, Bidirectional: true},
		},
		Metadata: DocumentMetadata{ExportedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), SchemaVersion: SchemaVersion},
	}

	data, err := doc.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"framework_metadata"`) {
		t.Fatal("metadata key missing from encoded document")
	}

	decoded, err := DecodeDocument(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Metadata.SchemaVersion != SchemaVersion {
		t.Fatalf("schema version = %q", decoded.Metadata.SchemaVersion)
	}
	if len(decoded.Patterns) != 1 || decoded.Patterns[0].Name != "encryption" {
		t.Fatalf("patterns not round-tripped: %+v", decoded.Patterns)
	}
	if decoded.Relationships[0].PropertyID == nil || *decoded.Relationships[0].PropertyID != "p1" {
		t.Fatal("relationship slot not round-tripped")
	}
}

func TestDecodeDocumentRejectsGarbage(t *testing.T) {
	if _, err := DecodeDocument([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
