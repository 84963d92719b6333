package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/courtsense/courtsense/internal/config"
	"github.com/courtsense/courtsense/internal/knowledge"
	"github.com/courtsense/courtsense/internal/rag"
)

func newSearchCmd() *cobra.Command {
	var (
		sport       string
		categories  []string
		technique   string
		limit       int
		threshold   float64
		showContext bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base by semantic similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			var parsed []knowledge.Category
			for _, raw := range categories {
				category := knowledge.Category(strings.ToUpper(raw))
				if !category.Valid() {
					return fmt.Errorf("unknown category %q (valid: %v)", raw, knowledge.AllCategories())
				}
				parsed = append(parsed, category)
			}

			a, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := retrieveOptions(a.cfg, sport, technique, parsed, limit, threshold)
			results := a.newRetriever().Retrieve(ctx, query, opts)
			if len(results) == 0 {
				fmt.Println("No matches")
				return nil
			}

			if showContext {
				fmt.Println(rag.BuildContext(results))
				return nil
			}

			for i, r := range results {
				fmt.Printf("%d. [%.3f] %s (%s, pages %d-%d)\n",
					i+1, r.Similarity, r.DocumentName, r.Category, r.PageStart, r.PageEnd)
				fmt.Printf("   %s\n", summarize(r.Content, 200))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sport, "sport", "", "restrict to one sport (chunks without a sport always match)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "restrict to categories (repeatable)")
	cmd.Flags().StringVar(&technique, "technique", "", "restrict to one technique (untagged chunks always match)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (default 5)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity, exclusive (default 0.3)")
	cmd.Flags().BoolVar(&showContext, "context", false, "print the assembled grounding block instead of a result list")
	return cmd
}

// retrieveOptions merges search flags with the configured retrieval defaults.
// Flags left at zero fall back to the config; an explicit negative threshold
// still passes through and disables filtering.
func retrieveOptions(cfg *config.Config, sport, technique string, categories []knowledge.Category, limit int, threshold float64) rag.RetrieveOptions {
	if limit == 0 {
		limit = cfg.RetrievalLimit
	}
	if threshold == 0 {
		threshold = cfg.RetrievalThreshold
	}
	return rag.RetrieveOptions{
		Sport:      sport,
		Categories: categories,
		Technique:  technique,
		Limit:      limit,
		Threshold:  threshold,
	}
}

// summarize collapses content to a single bounded line.
func summarize(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
