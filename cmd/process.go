package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newProcessCmd() *cobra.Command {
	var stuckOlderThan time.Duration

	cmd := &cobra.Command{
		Use:   "process [document-id]",
		Short: "Run or re-run the ingestion pipeline for a document",
		Long: `Process runs the ingestion pipeline for the given document.
Reprocessing is idempotent: previously stored chunks are replaced.

With --stuck, every document that has sat in PROCESSING longer than the
given duration is reprocessed instead; such documents usually come from a
run that was interrupted mid-flight.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if (len(args) == 0) == (stuckOlderThan == 0) {
				return errors.New("provide exactly one of a document id or --stuck")
			}

			a, err := setupApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			processor, err := a.newProcessor()
			if err != nil {
				return err
			}

			if stuckOlderThan > 0 {
				stuck, err := a.store.ListStuckProcessing(ctx, stuckOlderThan)
				if err != nil {
					return fmt.Errorf("listing stuck documents: %w", err)
				}
				if len(stuck) == 0 {
					fmt.Println("No stuck documents found")
					return nil
				}
				for _, doc := range stuck {
					fmt.Printf("Reprocessing %s (%s)\n", doc.ID, doc.Name)
					if err := processor.Process(ctx, doc.ID); err != nil {
						fmt.Printf("  failed: %v\n", err)
						continue
					}
					fmt.Println("  done")
				}
				return nil
			}

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid document id %q: %w", args[0], err)
			}
			if err := processor.Process(ctx, id); err != nil {
				return fmt.Errorf("processing document: %w", err)
			}

			count, err := a.store.CountChunks(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("Processed %s: %d chunks stored\n", id, count)
			return nil
		},
	}

	cmd.Flags().DurationVar(&stuckOlderThan, "stuck", 0, "reprocess documents stuck in PROCESSING longer than this (e.g. 30m)")
	return cmd
}
