package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fotoklaser/face-finder/internal/config"
	"github.com/fotoklaser/face-finder/internal/constants"
)

var similarCmd = &cobra.Command{
	Use:   "similar <url>",
	Short: "Find cached faces similar to an image",
	Long: `Search the whole embedding cache for faces close to the best face of the
given image, using an approximate nearest neighbor index.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().Int("limit", constants.DefaultSimilarLimit, "Number of results")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	f, _, err := newFinder(cfg)
	if err != nil {
		return err
	}

	results, err := f.Similar(context.Background(), args[0], mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No similar faces in cache")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%.4f  %s (group %s, face %d)\n", r.Similarity, r.Item, r.Group, r.FaceIndex)
	}
	return nil
}
