package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/synthdata/internal/logfields"
)

// FSStore is a filesystem-based implementation of ObjectStore.
// It stores objects in a content-addressable layout:
//
//	<base>/
//	  objects/
//	    ab/
//	      cd1234...            (first 2 chars = subdir, rest = filename)
//	      cd1234....meta.json
//	  refs/
//	    runs/
//	      <run-id>             (one object hash per line)
type FSStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFSStore creates the directory layout under basePath.
func NewFSStore(basePath string) (*FSStore, error) {
	for _, dir := range []string{
		filepath.Join(basePath, "objects"),
		filepath.Join(basePath, "refs", "runs"),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, storageErr(err, "create store directory")
		}
	}
	return &FSStore{basePath: basePath}, nil
}

// Path returns the store root.
func (fs *FSStore) Path() string { return fs.basePath }

// Put stores an object and returns its content hash.
func (fs *FSStore) Put(ctx context.Context, obj *Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	hash := obj.Hash
	if hash == "" {
		hash = Hash(obj.Data)
	}
	if !ValidHash(hash) {
		return "", ErrInvalidHash.WithContext("hash", hash)
	}

	objectPath := fs.objectPath(hash)
	if _, err := os.Stat(objectPath); err == nil {
		md, err := fs.readMetadata(hash)
		if err == nil {
			md.RefCount++
			md.LastAccessed = time.Now()
			if err := fs.writeMetadata(hash, md); err != nil {
				return hash, err
			}
		}
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o750); err != nil {
		return "", storageErr(err, "create object directory")
	}
	if err := writeAtomic(objectPath, obj.Data); err != nil {
		return "", storageErr(err, "write object")
	}

	now := time.Now()
	md := Metadata{
		CreatedAt:    now,
		LastAccessed: now,
		RefCount:     1,
		Custom:       make(map[string]string, len(obj.Metadata.Custom)+2),
	}
	maps.Copy(md.Custom, obj.Metadata.Custom)
	md.Custom[metaObjectType] = string(obj.Type)
	if obj.ContentType != "" {
		md.Custom[metaContentType] = obj.ContentType
	}
	if err := fs.writeMetadata(hash, md); err != nil {
		return hash, err
	}
	return hash, nil
}

// Get retrieves an object by its content hash and bumps its access time.
func (fs *FSStore) Get(ctx context.Context, hash string) (*Object, error) {
	if !ValidHash(hash) {
		return nil, notFound(hash)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	// #nosec G304 - objectPath is built from a validated hex hash
	data, err := os.ReadFile(fs.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(hash)
		}
		return nil, storageErr(err, "read object")
	}

	md, err := fs.readMetadata(hash)
	if err != nil {
		md = Metadata{CreatedAt: time.Now(), RefCount: 1, Custom: map[string]string{}}
	}
	md.LastAccessed = time.Now()
	if err := fs.writeMetadata(hash, md); err != nil {
		slog.Warn("Failed to update object metadata", logfields.Artifact(hash), logfields.Error(err))
	}

	return &Object{
		Hash:        hash,
		Type:        ObjectType(md.Custom[metaObjectType]),
		ContentType: md.Custom[metaContentType],
		Size:        int64(len(data)),
		Data:        data,
		Metadata:    md,
	}, nil
}

// Exists checks if an object with the given hash exists.
func (fs *FSStore) Exists(_ context.Context, hash string) (bool, error) {
	if !ValidHash(hash) {
		return false, nil
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if _, err := os.Stat(fs.objectPath(hash)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, storageErr(err, "stat object")
	}
	return true, nil
}

// Delete removes an object by its content hash.
func (fs *FSStore) Delete(_ context.Context, hash string) error {
	if !ValidHash(hash) {
		return notFound(hash)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.deleteUnlocked(hash)
}

// List returns all object hashes matching the given type filter.
func (fs *FSStore) List(_ context.Context, objectType ObjectType) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.listUnlocked(objectType)
}

// Close releases resources.
func (fs *FSStore) Close() error { return nil }

// GC removes every object not in referenced and returns how many went.
func (fs *FSStore) GC(ctx context.Context, referenced map[string]bool) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	all, err := fs.listUnlocked("")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, hash := range all {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if referenced[hash] {
			continue
		}
		if err := fs.deleteUnlocked(hash); err != nil && !IsNotFound(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ReferencedHashes collects every hash named by a run ref.
func (fs *FSStore) ReferencedHashes(ctx context.Context) (map[string]bool, error) {
	fs.mu.RLock()
	entries, err := os.ReadDir(filepath.Join(fs.basePath, "refs", "runs"))
	fs.mu.RUnlock()
	if err != nil {
		return nil, storageErr(err, "list run refs")
	}
	out := make(map[string]bool)
	for _, e := range entries {
		hashes, err := fs.GetRunRef(ctx, e.Name())
		if err != nil {
			return nil, err
		}
		for _, h := range hashes {
			out[h] = true
		}
	}
	return out, nil
}

// AddRunRef associates a run ID with a set of object hashes.
func (fs *FSStore) AddRunRef(_ context.Context, runID string, hashes []string) error {
	if !validRefName(runID) {
		return ErrInvalidHash.WithContext("run_id", runID)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := writeAtomic(fs.refPath(runID), []byte(strings.Join(hashes, "\n"))); err != nil {
		return storageErr(err, "write run ref")
	}
	return nil
}

// GetRunRef retrieves object hashes for a run ID.
func (fs *FSStore) GetRunRef(_ context.Context, runID string) ([]string, error) {
	if !validRefName(runID) {
		return nil, nil
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	// #nosec G304 - run IDs are validated by validRefName
	data, err := os.ReadFile(fs.refPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, storageErr(err, "read run ref")
	}
	var hashes []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			hashes = append(hashes, line)
		}
	}
	return hashes, nil
}

func (fs *FSStore) listUnlocked(objectType ObjectType) ([]string, error) {
	var hashes []string
	objectsDir := filepath.Join(fs.basePath, "objects")
	err := filepath.WalkDir(objectsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".meta.json") || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(objectsDir, path)
		if err != nil {
			return nil
		}
		hash := strings.ReplaceAll(rel, string(filepath.Separator), "")
		if objectType != "" {
			md, err := fs.readMetadata(hash)
			if err != nil || ObjectType(md.Custom[metaObjectType]) != objectType {
				return nil
			}
		}
		hashes = append(hashes, hash)
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "walk objects")
	}
	return hashes, nil
}

func (fs *FSStore) deleteUnlocked(hash string) error {
	objectPath := fs.objectPath(hash)
	if err := os.Remove(objectPath); err != nil {
		if os.IsNotExist(err) {
			return notFound(hash)
		}
		return storageErr(err, "delete object")
	}
	_ = os.Remove(fs.metadataPath(hash))
	_ = os.Remove(filepath.Dir(objectPath)) // only succeeds when empty
	return nil
}

func (fs *FSStore) objectPath(hash string) string {
	return filepath.Join(fs.basePath, "objects", hash[:2], hash[2:])
}

func (fs *FSStore) metadataPath(hash string) string {
	return fs.objectPath(hash) + ".meta.json"
}

func (fs *FSStore) refPath(runID string) string {
	return filepath.Join(fs.basePath, "refs", "runs", runID)
}

func (fs *FSStore) readMetadata(hash string) (Metadata, error) {
	// #nosec G304 - metadataPath is built from a validated hex hash
	data, err := os.ReadFile(fs.metadataPath(hash))
	if err != nil {
		return Metadata{}, storageErr(err, "read metadata")
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return Metadata{}, storageErr(err, "unmarshal metadata")
	}
	if md.Custom == nil {
		md.Custom = map[string]string{}
	}
	return md, nil
}

func (fs *FSStore) writeMetadata(hash string, md Metadata) error {
	data, err := json.Marshal(md)
	if err != nil {
		return storageErr(err, "marshal metadata")
	}
	if err := writeAtomic(fs.metadataPath(hash), data); err != nil {
		return storageErr(err, "write metadata")
	}
	return nil
}

// writeAtomic writes through a temp file and rename so readers never see a
// partial object.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func validRefName(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	for _, c := range s {
		ok := c == '-' || c == '_' || c == '.' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !ok {
			return false
		}
	}
	return s != "." && s != ".."
}
