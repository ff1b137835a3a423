// Package storage provides content-addressable storage for generated artifacts.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"time"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
)

// ObjectStore provides content-addressable storage for run outputs.
// Objects are stored by their content hash, so identical tables produced by
// the same seed are stored once.
type ObjectStore interface {
	// Put stores an object and returns its content hash.
	// If the object already exists, its reference count is incremented.
	Put(ctx context.Context, obj *Object) (hash string, err error)

	// Get retrieves an object by its content hash.
	// Returns ErrNotFound if the object doesn't exist.
	Get(ctx context.Context, hash string) (*Object, error)

	// Exists checks if an object with the given hash exists.
	Exists(ctx context.Context, hash string) (bool, error)

	// Delete removes an object by its content hash.
	// Returns ErrNotFound if the object doesn't exist.
	Delete(ctx context.Context, hash string) error

	// List returns all object hashes matching the given type filter.
	// If objectType is empty, returns all objects.
	List(ctx context.Context, objectType ObjectType) ([]string, error)

	// AddRunRef records the objects a run produced.
	AddRunRef(ctx context.Context, runID string, hashes []string) error

	// GetRunRef returns the objects recorded for a run, or nil.
	GetRunRef(ctx context.Context, runID string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Object represents a stored artifact with its metadata.
type Object struct {
	Hash        string     `json:"hash"`
	Type        ObjectType `json:"type"`
	ContentType string     `json:"content_type,omitempty"`
	Size        int64      `json:"size"`
	Data        []byte     `json:"-"`
	Metadata    Metadata   `json:"metadata"`
}

// Metadata is kept in a sidecar next to each object.
type Metadata struct {
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`

	// RefCount tracks how many runs stored this object.
	RefCount int `json:"ref_count"`

	Custom map[string]string `json:"custom,omitempty"`
}

// ObjectType identifies the kind of stored object.
type ObjectType string

const (
	ObjectTypeSeries   ObjectType = "series"
	ObjectTypePattern  ObjectType = "pattern"
	ObjectTypeDataset  ObjectType = "dataset"
	ObjectTypePlot     ObjectType = "plot"
	ObjectTypeManifest ObjectType = "manifest"
)

// Custom metadata keys set by the stores.
const (
	metaObjectType  = "object_type"
	metaContentType = "content_type"
)

// ErrNotFound is returned when an object doesn't exist.
var ErrNotFound = errors.NotFoundError("object not found").Build()

// ErrInvalidHash is returned for hashes that are not 64 lowercase hex digits.
var ErrInvalidHash = errors.ValidationError("invalid object hash").Build()

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// Hash returns the content hash used as object key.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ValidHash reports whether s looks like a sha256 hex digest.
func ValidHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func notFound(hash string) error {
	return ErrNotFound.WithContext("hash", hash)
}

func storageErr(err error, msg string) error {
	return errors.WrapError(err, errors.CategoryStorage, msg).Retryable().Build()
}
