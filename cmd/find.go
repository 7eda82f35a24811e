package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fotoklaser/face-finder/internal/config"
	"github.com/fotoklaser/face-finder/internal/face"
	"github.com/fotoklaser/face-finder/internal/finder"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find a person across a set of image URLs",
	Long: `Find the person from the target image in a scope of image URLs.

The scope can be given with repeated --scope flags or loaded from a YAML
file. Downloaded embeddings are cached, so repeated runs over the same
album only hit the detection service for new images.

Examples:
  # Find a person in three photos
  face-finder find --target https://gallery/p.jpg \
    --scope https://gallery/a.jpg --scope https://gallery/b.jpg --scope https://gallery/c.jpg

  # Load the scope from a file and use a stricter threshold
  face-finder find --target https://gallery/p.jpg --scope-file album.yaml --threshold 0.7

  # Match only the largest face of the target image
  face-finder find --target https://gallery/p.jpg --scope-file album.yaml --target-face largest`,
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)

	findCmd.Flags().String("target", "", "URL of the target person's image (required)")
	findCmd.Flags().StringSlice("scope", nil, "Scope image URL (repeatable)")
	findCmd.Flags().String("scope-file", "", "YAML file with scope URLs")
	findCmd.Flags().Float64("threshold", 0, "Similarity threshold (0-1, default from config)")
	findCmd.Flags().String("target-face", "all", "Target face selector: all, largest, best, an index, or a comma-separated index list")
	findCmd.Flags().Int("max-results", 0, "Limit number of matched images (0 = no limit)")
	findCmd.Flags().Int("concurrency", 0, "Number of parallel scope downloads (default from config)")
	findCmd.Flags().Bool("details", false, "Print per-face match details")
}

// scopeFileDoc is the YAML shape accepted by --scope-file. A plain list of
// URLs also works.
type scopeFileDoc struct {
	Target string   `yaml:"target"`
	Scope  []string `yaml:"scope"`
}

func loadScopeFile(path string) (string, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read scope file: %w", err)
	}

	var plain []string
	if err := yaml.Unmarshal(data, &plain); err == nil {
		return "", plain, nil
	}

	var doc scopeFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("failed to parse scope file: %w", err)
	}
	return doc.Target, doc.Scope, nil
}

// parseTargetFace turns the --target-face flag into a selector.
func parseTargetFace(s string) (face.Selector, error) {
	switch s {
	case "", "all", "largest", "best":
		return face.ParseSelector(s), nil
	}
	if strings.Contains(s, ",") {
		var indices []any
		for _, part := range strings.Split(s, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return face.Selector{}, fmt.Errorf("invalid face index %q", part)
			}
			indices = append(indices, float64(n))
		}
		return face.ParseSelector(indices), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return face.Selector{}, fmt.Errorf("invalid target face selector %q", s)
	}
	return face.ParseSelector(float64(n)), nil
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	target := mustGetString(cmd, "target")
	scope := mustGetStringSlice(cmd, "scope")
	details := mustGetBool(cmd, "details")

	if path := mustGetString(cmd, "scope-file"); path != "" {
		fileTarget, fileScope, err := loadScopeFile(path)
		if err != nil {
			return err
		}
		scope = append(scope, fileScope...)
		if target == "" {
			target = fileTarget
		}
	}

	if target == "" {
		return fmt.Errorf("--target is required (or a target entry in --scope-file)")
	}
	if len(scope) == 0 {
		return fmt.Errorf("no scope URLs given, use --scope or --scope-file")
	}

	threshold := mustGetFloat64(cmd, "threshold")
	if threshold == 0 {
		threshold = cfg.Find.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1")
	}

	selector, err := parseTargetFace(mustGetString(cmd, "target-face"))
	if err != nil {
		return err
	}

	f, _, err := newFinder(cfg)
	if err != nil {
		return err
	}

	bar := newProgressBar(len(scope), "Searching scope", "images")
	result, err := f.FindInScope(context.Background(), finder.FindRequest{
		Target:         target,
		Scope:          scope,
		Threshold:      threshold,
		TargetFace:     selector,
		MaxResults:     mustGetInt(cmd, "max-results"),
		Concurrency:    mustGetInt(cmd, "concurrency"),
		IncludeDetails: details,
		OnProgress: func(done, total int) {
			_ = bar.Set(done)
		},
	})
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("Target: %s (%d faces, threshold %.2f)\n", result.TargetURL, result.TargetFacesCount, result.Threshold)
	fmt.Printf("Matched %d of %d scope images\n\n", len(result.Matches), result.TotalScopeImages)

	for _, m := range result.Matches {
		fmt.Printf("%.4f  %s", m.Similarity, m.URL)
		if m.MatchingFaces > 1 {
			fmt.Printf("  (%d matching faces)", m.MatchingFaces)
		}
		fmt.Println()
		if details {
			for _, p := range m.Pairs {
				fmt.Printf("        target face %d -> scope face %d: %.4f\n",
					p.TargetFaceIndex, p.ScopeFaceIndex, p.Similarity)
			}
		}
	}
	return nil
}
