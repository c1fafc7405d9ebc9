package framework

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion identifies the export document layout.
const SchemaVersion = "1.0"

// DocumentMetadata stamps an export with its provenance.
type DocumentMetadata struct {
	ExportedAt    time.Time `json:"exported_at"`
	SchemaVersion string    `json:"schema_version"`
}

// Document is the interchange format produced by export and consumed by
// import and the persistence collaborators.
type Document struct {
	Patterns      []Pattern        `json:"patterns"`
	Relationships []Relationship   `json:"relationships"`
	Metadata      DocumentMetadata `json:"framework_metadata"`
}

// Encode serializes the document as indented JSON.
func (d Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// DecodeDocument parses an export document.
func DecodeDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
