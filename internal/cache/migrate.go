package cache

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fotoklaser/face-finder/internal/face"
)

// Legacy (v1) layout: one gob file per item under embeddings/, keyed by an
// opaque hash, plus a flat metadata.json mapping that key to the item's
// source path and fingerprint.
const (
	legacyDirName      = "embeddings"
	legacyItemExt      = ".bin"
	legacyLeftoverName = "metadata.legacy.json"
)

// legacyMeta is one entry of the flat v1 metadata document.
type legacyMeta struct {
	FilePath string `json:"file_path"`
	FileHash string `json:"file_hash"`
	CachedAt string `json:"cached_at"`
	NumFaces int    `json:"num_faces"`
}

// MigrateResult reports what a migration run did.
type MigrateResult struct {
	Migrated int
	Skipped  int // entries left in place for manual inspection
}

// Migrate imports a legacy single-item-per-file cache into the grouped
// layout. It is idempotent: once no legacy entries remain, running it again
// is a no-op. Entries that cannot be parsed are not dropped; their files stay
// under embeddings/ and their metadata is preserved in metadata.legacy.json.
func (c *Cache) Migrate() (MigrateResult, error) {
	var res MigrateResult

	legacy, legacyPath, err := c.loadLegacyIndex()
	if err != nil {
		return res, err
	}
	if len(legacy) == 0 {
		return res, nil
	}

	leftovers := make(map[string]legacyMeta)
	for key, meta := range legacy {
		itemPath := filepath.Join(c.dir, legacyDirName, key+legacyItemExt)
		faces, err := readLegacyItem(itemPath)
		if err != nil {
			log.Printf("cache: migration leaving %s for manual inspection: %v", key, err)
			leftovers[key] = meta
			res.Skipped++
			continue
		}

		item := filepath.Base(meta.FilePath)
		if item == "" || item == "." {
			item = key
		}
		group := GroupKeyForName(item)

		cachedAt, parseErr := time.Parse(time.RFC3339, meta.CachedAt)
		if parseErr != nil {
			cachedAt = time.Now().UTC()
		}
		entry := Entry{
			SourceRef:   meta.FilePath,
			Fingerprint: meta.FileHash,
			CachedAt:    cachedAt,
			Faces:       faces,
		}
		if err := c.Put(group, item, entry); err != nil {
			log.Printf("cache: migration leaving %s for manual inspection: %v", key, err)
			leftovers[key] = meta
			res.Skipped++
			continue
		}

		if err := os.Remove(itemPath); err != nil && !os.IsNotExist(err) {
			log.Printf("cache: migration could not remove %s: %v", itemPath, err)
		}
		res.Migrated++
	}

	if err := c.writeLegacyLeftovers(leftovers); err != nil {
		return res, err
	}
	// The old flat index was either replaced by the grouped metadata.json
	// during Put, or lives in a standalone file we can now drop.
	if legacyPath != c.indexPath() {
		if err := os.Remove(legacyPath); err != nil && !os.IsNotExist(err) {
			log.Printf("cache: migration could not remove %s: %v", legacyPath, err)
		}
	}
	return res, nil
}

// loadLegacyIndex finds the flat v1 metadata document. It may live at the
// cache root (shared name with the grouped index before the first Put) or
// in metadata.legacy.json from a previous partial migration.
func (c *Cache) loadLegacyIndex() (map[string]legacyMeta, string, error) {
	for _, path := range []string{
		filepath.Join(c.dir, legacyDirName, legacyLeftoverName),
		c.indexPath(),
	} {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
		}

		// The grouped index also lives at metadata.json; only a flat
		// key -> {file_path, ...} document is a legacy index.
		var grouped indexFile
		if err := json.Unmarshal(data, &grouped); err == nil && grouped.Version == indexVersion {
			continue
		}
		var legacy map[string]legacyMeta
		if err := json.Unmarshal(data, &legacy); err != nil {
			continue
		}
		valid := make(map[string]legacyMeta)
		for key, meta := range legacy {
			if meta.FilePath != "" || meta.FileHash != "" {
				valid[key] = meta
			}
		}
		if len(valid) > 0 {
			return valid, path, nil
		}
	}
	return nil, "", nil
}

// readLegacyItem decodes a v1 per-item gob file.
func readLegacyItem(path string) ([]face.Face, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var faces []face.Face
	if err := gob.NewDecoder(f).Decode(&faces); err != nil {
		return nil, fmt.Errorf("failed to decode legacy item: %w", err)
	}
	return faces, nil
}

// writeLegacyLeftovers persists the metadata of unmigrated entries next to
// their files, or removes the leftover file when nothing remains.
func (c *Cache) writeLegacyLeftovers(leftovers map[string]legacyMeta) error {
	path := filepath.Join(c.dir, legacyDirName, legacyLeftoverName)
	if len(leftovers) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		return nil
	}

	data, err := json.MarshalIndent(leftovers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode legacy leftovers: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
