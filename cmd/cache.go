package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fotoklaser/face-finder/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(config.Load())
		if err != nil {
			return err
		}
		stats, err := c.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Cache directory: %s\n", c.Dir())
		fmt.Printf("  Groups: %d\n", stats.TotalGroups)
		fmt.Printf("  Items:  %d\n", stats.TotalItems)
		fmt.Printf("  Faces:  %d\n", stats.TotalFaces)
		fmt.Printf("  Size:   %.1f MiB\n", float64(stats.SizeBytes)/(1<<20))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached embeddings",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(config.Load())
		if err != nil {
			return err
		}
		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Println("Cache cleared")
		return nil
	},
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove cache entries whose source files changed or disappeared",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(config.Load())
		if err != nil {
			return err
		}
		removed, err := c.InvalidateStale()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d stale entries\n", removed)
		return nil
	},
}

var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate a legacy per-file cache to the grouped layout",
	Long: `Convert a cache written by older releases (one gob file per image plus a
flat metadata index) into the grouped blob layout. Entries that cannot be
parsed are left in place and reported. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(config.Load())
		if err != nil {
			return err
		}
		result, err := c.Migrate()
		if err != nil {
			return err
		}
		fmt.Printf("Migrated %d entries, skipped %d\n", result.Migrated, result.Skipped)
		return nil
	},
}

var cacheRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the cache index from the group blobs",
	Long: `Rebuild metadata.json by scanning every group blob. Use this when the
index was lost or corrupted; the blobs are the source of truth.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(config.Load())
		if err != nil {
			return err
		}
		if err := c.RebuildIndex(); err != nil {
			return err
		}
		stats, err := c.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Index rebuilt: %d items in %d groups\n", stats.TotalItems, stats.TotalGroups)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
	cacheCmd.AddCommand(cacheMigrateCmd)
	cacheCmd.AddCommand(cacheRebuildCmd)
}
