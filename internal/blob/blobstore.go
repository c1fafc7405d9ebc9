// Package blob is the facade over the blob storage backends. Call sites
// depend on the Store interface here; the infra packages stay behind it.
package blob

import (
	"p3if/internal/blob/core"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver = core.Driver

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// PutOptions specifies optional parameters for Put.
type PutOptions = core.PutOptions

// SignedURLOptions holds options for generating a pre-signed URL.
type SignedURLOptions = core.SignedURLOptions

// Info describes a stored blob.
type Info = core.Info

// Store is the backend abstraction archived exports are written through.
type Store = core.Store

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = core.ErrUnsupported
