// Package archive stores exported framework documents as immutable blobs.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"p3if/internal/blob"
	"p3if/pkg/framework"
)

// KeyPrefix is where archived exports live inside the blob store.
const KeyPrefix = "exports/"

const contentTypeJSON = "application/json"

// Archiver writes and reads export documents through a blob.Store.
type Archiver struct {
	store blob.Store
}

// New constructs an Archiver over the given blob store.
func New(store blob.Store) *Archiver { return &Archiver{store: store} }

// Key derives the archive key for a document from its export timestamp.
func Key(exportedAt time.Time) string {
	return fmt.Sprintf("%sp3if-%s.json", KeyPrefix, exportedAt.UTC().Format("20060102T150405Z"))
}

// SaveDocument encodes the document and stores it under a timestamped key.
// Returns the blob info of the stored export.
func (a *Archiver) SaveDocument(ctx context.Context, doc framework.Document) (blob.Info, error) {
	data, err := doc.Encode()
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode document: %w", err)
	}
	key := Key(doc.Metadata.ExportedAt)
	info, err := a.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: contentTypeJSON,
		Metadata:    map[string]string{"schema_version": doc.Metadata.SchemaVersion},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store export %s: %w", key, err)
	}
	return info, nil
}

// LoadDocument fetches and decodes an archived export by key.
func (a *Archiver) LoadDocument(ctx context.Context, key string) (framework.Document, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return framework.Document{}, fmt.Errorf("fetch export %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return framework.Document{}, fmt.Errorf("read export %s: %w", key, err)
	}
	doc, err := framework.DecodeDocument(data)
	if err != nil {
		return framework.Document{}, fmt.Errorf("decode export %s: %w", key, err)
	}
	return doc, nil
}

// List returns the archived exports, ordered by key (and therefore by
// export timestamp).
func (a *Archiver) List(ctx context.Context) ([]blob.Info, error) {
	return a.store.List(ctx, KeyPrefix)
}
