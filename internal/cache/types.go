// Package cache implements the persistent face embedding cache. Detected
// faces are stored grouped: items sharing a group key live in one gob blob
// under groups/, while a separate JSON index (metadata.json) carries the
// per-item fingerprints so staleness checks never load embeddings.
package cache

import (
	"errors"
	"time"

	"github.com/fotoklaser/face-finder/internal/face"
)

// ErrNotFound reports a cache miss: the item is absent, its source is gone,
// or its stored fingerprint no longer matches the source content.
var ErrNotFound = errors.New("cache entry not found")

// blobVersion is the current on-disk version of group blobs. Version 1 was
// the single-item-per-file layout handled by Migrate.
const blobVersion = 2

// indexVersion is the current on-disk version of the metadata index.
const indexVersion = 2

// Entry is the payload stored for one item: the detected faces plus the
// provenance needed for staleness checks.
type Entry struct {
	SourceRef   string      // local path or URL the faces were computed from
	Fingerprint string      // content fingerprint at compute time
	CachedAt    time.Time
	Faces       []face.Face
}

// ItemSource describes the current state of an item's source, supplied by the
// caller who has the content in hand.
type ItemSource struct {
	Ref         string
	Fingerprint string
}

// FileSource fingerprints a local file for use with GetOrCompute.
func FileSource(path string) (ItemSource, error) {
	fp, err := FingerprintFile(path)
	if err != nil {
		return ItemSource{}, err
	}
	return ItemSource{Ref: path, Fingerprint: fp}, nil
}

// BytesSource fingerprints in-memory content (e.g. a downloaded image) for
// use with GetOrCompute. ref records where the content came from.
func BytesSource(ref string, data []byte) ItemSource {
	return ItemSource{Ref: ref, Fingerprint: Fingerprint(data)}
}

// itemMeta is the index record for one cached item. It duplicates the blob's
// provenance fields so existence and staleness checks are metadata lookups.
type itemMeta struct {
	SourceRef   string    `json:"source_ref"`
	Fingerprint string    `json:"fingerprint"`
	FaceCount   int       `json:"face_count"`
	CachedAt    time.Time `json:"cached_at"`
}

// indexFile is the persisted form of the metadata index.
type indexFile struct {
	Version int                             `json:"version"`
	Groups  map[string]map[string]itemMeta `json:"groups"`
}

// blobItem is the stored form of one item inside a group blob.
type blobItem struct {
	SourceRef   string
	Fingerprint string
	CachedAt    time.Time
	Faces       []face.Face
}

// groupBlob is the gob-encoded payload of one group file. Blobs are the
// source of truth; the index can be rebuilt from them.
type groupBlob struct {
	Version int
	Items   map[string]blobItem
}

// Stats summarizes the cache contents.
type Stats struct {
	TotalGroups int   `json:"total_groups"`
	TotalItems  int   `json:"total_items"`
	TotalFaces  int   `json:"total_faces"`
	SizeBytes   int64 `json:"size_bytes"`
}
