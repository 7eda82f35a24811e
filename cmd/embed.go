package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fotoklaser/face-finder/internal/config"
)

var embedCmd = &cobra.Command{
	Use:   "embed [urls...]",
	Short: "Pre-warm the embedding cache for image URLs",
	Long: `Download images and store their face embeddings in the cache so later
find runs start warm.

URLs are taken from the arguments or, with --file, one per line from a
text file. Lines starting with # are skipped.

Examples:
  face-finder embed https://gallery/a.jpg https://gallery/b.jpg
  face-finder embed --file album-urls.txt`,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().String("file", "", "Text file with one URL per line")
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func runEmbed(cmd *cobra.Command, args []string) error {
	urls := args
	if path := mustGetString(cmd, "file"); path != "" {
		fromFile, err := readURLFile(path)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given")
	}

	cfg := config.Load()
	f, _, err := newFinder(cfg)
	if err != nil {
		return err
	}

	bar := newProgressBar(len(urls), "Embedding images", "images")
	results := f.EmbedURLs(context.Background(), urls, func(done, total int) {
		_ = bar.Set(done)
	})
	_ = bar.Finish()
	fmt.Println()

	var failed, cached, faces int
	for _, r := range results {
		if !r.OK {
			failed++
			fmt.Printf("failed: %s: %s\n", r.URL, r.Error)
			continue
		}
		if r.Cached {
			cached++
		}
		faces += r.NumFaces
	}

	fmt.Printf("Processed %d URLs: %d faces, %d already cached, %d failed\n",
		len(urls), faces, cached, failed)
	return nil
}
