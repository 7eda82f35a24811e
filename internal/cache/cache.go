package cache

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fotoklaser/face-finder/internal/face"
)

const (
	indexFileName = "metadata.json"
	groupsDirName = "groups"
	blobExt       = ".bin"
)

// ComputeFunc produces the faces for an item on a cache miss, typically by
// calling the detection service. An empty result is valid and cached.
type ComputeFunc func(ctx context.Context) ([]face.Face, error)

// Cache is a persistent store of detected faces keyed by (group, item).
// A single Cache is constructed at process start and shared; all index
// mutations are serialized by an internal mutex, and same-key write races
// degrade to last-writer-wins, which is safe because recomputation is
// idempotent.
type Cache struct {
	dir string

	mu    sync.Mutex
	index map[string]map[string]itemMeta
}

// Open loads or creates a cache rooted at dir.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Join(dir, groupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	c := &Cache{dir: dir, index: make(map[string]map[string]itemMeta)}
	if err := c.loadIndex(); err != nil {
		return nil, err
	}

	// Import any legacy per-file layout so an upgrade keeps its warm cache.
	// Once nothing legacy remains this is a no-op; a failed migration
	// degrades to an empty cache instead of refusing to open.
	if res, err := c.Migrate(); err != nil {
		log.Printf("cache: legacy migration: %v", err)
	} else if res.Migrated > 0 || res.Skipped > 0 {
		log.Printf("cache: migrated %d legacy entries, %d left for manual inspection", res.Migrated, res.Skipped)
	}
	return c, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.dir, indexFileName)
}

func (c *Cache) blobPath(group string) string {
	return filepath.Join(c.dir, groupsDirName, group+blobExt)
}

// loadIndex reads metadata.json. A missing file is an empty cache; a legacy
// v1 index is left for Migrate and treated as empty here.
func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache index: %w", err)
	}

	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil || idx.Version != indexVersion {
		// Not the grouped format. Migrate handles legacy layouts; nothing to
		// load into the in-memory index yet.
		return nil
	}
	if idx.Groups != nil {
		c.index = idx.Groups
	}
	return nil
}

// saveIndexLocked persists the index atomically (write temp, rename).
// Callers must hold c.mu.
func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(indexFile{Version: indexVersion, Groups: c.index}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache index: %w", err)
	}

	tmp := c.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	if err := os.Rename(tmp, c.indexPath()); err != nil {
		return fmt.Errorf("failed to replace cache index: %w", err)
	}
	return nil
}

// readBlob loads a group blob from disk.
func (c *Cache) readBlob(group string) (*groupBlob, error) {
	f, err := os.Open(c.blobPath(group))
	if err != nil {
		if os.IsNotExist(err) {
			return &groupBlob{Version: blobVersion, Items: make(map[string]blobItem)}, nil
		}
		return nil, fmt.Errorf("failed to open group %s: %w", group, err)
	}
	defer f.Close()

	var blob groupBlob
	if err := gob.NewDecoder(f).Decode(&blob); err != nil {
		return nil, fmt.Errorf("failed to decode group %s: %w", group, err)
	}
	if blob.Items == nil {
		blob.Items = make(map[string]blobItem)
	}
	return &blob, nil
}

// writeBlob persists a group blob atomically. An empty blob removes the file.
func (c *Cache) writeBlob(group string, blob *groupBlob) error {
	path := c.blobPath(group)
	if len(blob.Items) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove group %s: %w", group, err)
		}
		return nil
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create group %s: %w", group, err)
	}
	blob.Version = blobVersion
	if err := gob.NewEncoder(f).Encode(blob); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode group %s: %w", group, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write group %s: %w", group, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace group %s: %w", group, err)
	}
	return nil
}

// Get returns the cached faces for (group, item) when the stored fingerprint
// matches currentFingerprint. Stale or missing entries return ErrNotFound;
// partial data is never returned.
func (c *Cache) Get(group, item, currentFingerprint string) ([]face.Face, error) {
	c.mu.Lock()
	meta, ok := c.index[group][item]
	c.mu.Unlock()

	if !ok || meta.Fingerprint == "" || meta.Fingerprint != currentFingerprint {
		return nil, ErrNotFound
	}

	blob, err := c.readBlob(group)
	if err != nil {
		// Unreadable payload degrades to a miss; the caller recomputes.
		log.Printf("cache: reading group %s: %v", group, err)
		return nil, ErrNotFound
	}
	stored, ok := blob.Items[item]
	if !ok || stored.Fingerprint != currentFingerprint {
		return nil, ErrNotFound
	}
	return stored.Faces, nil
}

// Put upserts the faces for (group, item). The payload blob is written first;
// the index is only updated and persisted after the blob write succeeds, so a
// failed write never corrupts the index.
func (c *Cache) Put(group, item string, e Entry) error {
	if e.CachedAt.IsZero() {
		e.CachedAt = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	blob, err := c.readBlob(group)
	if err != nil {
		// A corrupt blob is replaced rather than propagated: the remaining
		// entries are already unreadable and recomputable.
		log.Printf("cache: replacing unreadable group %s: %v", group, err)
		blob = &groupBlob{Items: make(map[string]blobItem)}
	}
	blob.Items[item] = blobItem{
		SourceRef:   e.SourceRef,
		Fingerprint: e.Fingerprint,
		CachedAt:    e.CachedAt,
		Faces:       e.Faces,
	}
	if err := c.writeBlob(group, blob); err != nil {
		return err
	}

	if c.index[group] == nil {
		c.index[group] = make(map[string]itemMeta)
	}
	c.index[group][item] = itemMeta{
		SourceRef:   e.SourceRef,
		Fingerprint: e.Fingerprint,
		FaceCount:   len(e.Faces),
		CachedAt:    e.CachedAt,
	}
	return c.saveIndexLocked()
}

// GetOrCompute returns the cached faces for (group, item) when still valid,
// otherwise invokes compute, stores the result (even when no faces were
// found) and returns it. The returned bool reports a cache hit.
//
// The fingerprint check and the store are deliberately not atomic: concurrent
// callers may redundantly recompute the same item, which is wasteful but safe
// under last-writer-wins.
func (c *Cache) GetOrCompute(ctx context.Context, group, item string, src ItemSource, compute ComputeFunc) ([]face.Face, bool, error) {
	if faces, err := c.Get(group, item, src.Fingerprint); err == nil {
		return faces, true, nil
	}

	faces, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	entry := Entry{SourceRef: src.Ref, Fingerprint: src.Fingerprint, Faces: faces}
	if err := c.Put(group, item, entry); err != nil {
		// Persistence failure degrades to uncached operation.
		log.Printf("cache: storing %s/%s: %v", group, item, err)
	}
	return faces, false, nil
}

// InvalidateStale scans the index and drops entries whose source file no
// longer exists or whose content changed, removing the embeddings from the
// group blobs. Entries with non-file sources (URLs) cannot be revalidated
// cheaply and are kept. Returns the number of entries removed; one group
// failing to rewrite does not abort the scan.
func (c *Cache) InvalidateStale() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for group, items := range c.index {
		var stale []string
		for item, meta := range items {
			if !isLocalFileRef(meta.SourceRef) {
				continue
			}
			current, err := FingerprintFile(meta.SourceRef)
			if err != nil || current != meta.Fingerprint {
				stale = append(stale, item)
			}
		}
		if len(stale) == 0 {
			continue
		}

		blob, err := c.readBlob(group)
		if err != nil {
			log.Printf("cache: cleanup skipping group %s: %v", group, err)
			continue
		}
		for _, item := range stale {
			delete(blob.Items, item)
		}
		if err := c.writeBlob(group, blob); err != nil {
			log.Printf("cache: cleanup skipping group %s: %v", group, err)
			continue
		}

		for _, item := range stale {
			delete(items, item)
			removed++
		}
		if len(items) == 0 {
			delete(c.index, group)
		}
	}

	if removed > 0 {
		if err := c.saveIndexLocked(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// isLocalFileRef reports whether a source ref points at the local filesystem.
func isLocalFileRef(ref string) bool {
	return ref != "" && !strings.Contains(ref, "://")
}

// Stats returns cache totals. Disk usage covers the index and group blobs.
func (c *Cache) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Stats
	s.TotalGroups = len(c.index)
	for _, items := range c.index {
		s.TotalItems += len(items)
		for _, meta := range items {
			s.TotalFaces += meta.FaceCount
		}
	}

	if info, err := os.Stat(c.indexPath()); err == nil {
		s.SizeBytes += info.Size()
	}
	entries, err := os.ReadDir(filepath.Join(c.dir, groupsDirName))
	if err != nil {
		return s, nil
	}
	for _, e := range entries {
		if info, err := e.Info(); err == nil && !info.IsDir() {
			s.SizeBytes += info.Size()
		}
	}
	return s, nil
}

// Clear destroys all cache state. Concurrent readers simply miss afterwards.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(c.dir, groupsDirName)); err != nil {
		return fmt.Errorf("failed to clear cache groups: %w", err)
	}
	if err := os.Remove(c.indexPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache index: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(c.dir, groupsDirName), 0o755); err != nil {
		return fmt.Errorf("failed to recreate cache dir: %w", err)
	}
	c.index = make(map[string]map[string]itemMeta)
	return nil
}

// RebuildIndex reconstructs metadata.json from the group blobs. Blobs carry
// the full provenance per item, so a lost index is recovered losslessly.
func (c *Cache) RebuildIndex() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(c.dir, groupsDirName))
	if err != nil {
		return fmt.Errorf("failed to list cache groups: %w", err)
	}

	rebuilt := make(map[string]map[string]itemMeta)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, blobExt) {
			continue
		}
		group := strings.TrimSuffix(name, blobExt)
		blob, err := c.readBlob(group)
		if err != nil {
			log.Printf("cache: rebuild skipping group %s: %v", group, err)
			continue
		}
		items := make(map[string]itemMeta, len(blob.Items))
		for item, stored := range blob.Items {
			items[item] = itemMeta{
				SourceRef:   stored.SourceRef,
				Fingerprint: stored.Fingerprint,
				FaceCount:   len(stored.Faces),
				CachedAt:    stored.CachedAt,
			}
		}
		if len(items) > 0 {
			rebuilt[group] = items
		}
	}

	c.index = rebuilt
	return c.saveIndexLocked()
}

// Groups returns the group keys currently present in the index, for
// diagnostics and index building.
func (c *Cache) Groups() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	groups := make([]string, 0, len(c.index))
	for g := range c.index {
		groups = append(groups, g)
	}
	return groups
}

// WalkFaces calls fn for every cached face. Used to build the in-memory
// similarity index.
func (c *Cache) WalkFaces(fn func(group, item string, faceIndex int, f face.Face)) error {
	for _, group := range c.Groups() {
		blob, err := c.readBlob(group)
		if err != nil {
			log.Printf("cache: walk skipping group %s: %v", group, err)
			continue
		}
		for item, stored := range blob.Items {
			for i, f := range stored.Faces {
				fn(group, item, i, f)
			}
		}
	}
	return nil
}
