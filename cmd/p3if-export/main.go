// Command p3if-export hydrates the framework from the configured persistent
// store and writes a JSON export document, either to stdout or into the
// configured blob archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"p3if/internal/archive"
	"p3if/internal/blob"
	"p3if/internal/core"
)

var (
	exitFunc           = os.Exit
	stdout   io.Writer = os.Stdout
	stderr   io.Writer = os.Stderr
)

func main() {
	toArchive := flag.Bool("archive", false, "store the export in the blob archive instead of writing to stdout")
	flag.Parse()

	if err := run(context.Background(), *toArchive); err != nil {
		fmt.Fprintf(stderr, "p3if-export: %v\n", err)
		exitFunc(1)
	}
}

func run(ctx context.Context, toArchive bool) error {
	backend, err := core.OpenPersistentStore()
	if err != nil {
		return fmt.Errorf("open persistent store: %w", err)
	}
	store, err := core.HydrateStore(ctx, backend, nil)
	if err != nil {
		return fmt.Errorf("hydrate store: %w", err)
	}

	if toArchive {
		blobStore, err := blob.Open(ctx)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		info, err := archive.New(blobStore).SaveDocument(ctx, store.ExportDocument())
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "archived %s (%d bytes)\n", info.Key, info.Size)
		return nil
	}

	data, err := store.ExportJSON()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	_, err = stdout.Write(append(data, '\n'))
	return err
}
