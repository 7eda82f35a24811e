package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fotoklaser/face-finder/internal/config"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <url>",
	Short: "List the faces detected in an image",
	Long: `Show the bounding box and detection score of every face in an image.
Use the printed indices with "find --target-face" to match a specific face.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	f, client, err := newFinder(cfg)
	if err != nil {
		return err
	}

	result, err := f.Inspect(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d faces (model %s)\n", result.URL, result.FacesCount, client.Model())
	for _, face := range result.Faces {
		fmt.Printf("  [%d] score %.3f  bbox %v\n", face.Index, face.Score, face.BBox)
	}
	return nil
}
