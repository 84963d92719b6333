package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/courtsense/courtsense/internal/knowledge"
)

func newIngestCmd() *cobra.Command {
	var (
		name  string
		sport string
	)

	cmd := &cobra.Command{
		Use:   "ingest <path-or-url>",
		Short: "Register a PDF document and process it into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			source := args[0]

			a, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if name == "" {
				name = documentNameFromSource(source)
			}

			params := knowledge.NewDocumentParams{Name: name, SourceURL: source}
			if sport != "" {
				params.SportSlug = &sport
			}

			doc, err := a.store.CreateDocument(ctx, params)
			if err != nil {
				return fmt.Errorf("registering document: %w", err)
			}
			fmt.Printf("Registered document %s (%s)\n", doc.ID, doc.Name)

			processor, err := a.newProcessor()
			if err != nil {
				return err
			}
			if err := processor.Process(ctx, doc.ID); err != nil {
				return fmt.Errorf("processing document: %w", err)
			}

			count, err := a.store.CountChunks(ctx, doc.ID)
			if err != nil {
				return err
			}
			fmt.Printf("Processed %s: %d chunks stored\n", doc.Name, count)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name for the document (defaults to the file name)")
	cmd.Flags().StringVar(&sport, "sport", "", "sport slug the document applies to (empty means all sports)")
	return cmd
}

// documentNameFromSource derives a readable name from a path or URL.
func documentNameFromSource(source string) string {
	base := filepath.Base(strings.TrimSuffix(source, "/"))
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return source
	}
	return base
}
