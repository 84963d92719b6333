package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDocumentsCmd() *cobra.Command {
	var limit int32

	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "List documents in the knowledge base",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.store.ListDocuments(ctx, limit)
			if err != nil {
				return fmt.Errorf("listing documents: %w", err)
			}
			if len(docs) == 0 {
				fmt.Println("No documents")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSPORT\tSTATUS\tPAGES\tERROR")
			for _, doc := range docs {
				sport := "-"
				if doc.SportSlug != nil {
					sport = *doc.SportSlug
				}
				pages := "-"
				if doc.PageCount != nil {
					pages = fmt.Sprintf("%d", *doc.PageCount)
				}
				errMsg := ""
				if doc.ErrorMessage != nil {
					errMsg = *doc.ErrorMessage
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					doc.ID, doc.Name, sport, doc.Status, pages, errMsg)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int32Var(&limit, "limit", 50, "maximum number of documents to list")
	return cmd
}
