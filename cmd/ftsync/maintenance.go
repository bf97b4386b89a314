package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newReindexCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <type>...",
		Short: "Rebuild the entries of record types from the database",
		Long: `Rebuild the entry of every record of each type, one record at a time.
A failure stops the run; records reindexed before it keep their new entry.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context(), rt)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, typeName := range args {
				n, err := a.Sync.ReindexAll(cmd.Context(), typeName)
				if err != nil {
					rt.logger.Error("Reindex aborted", zap.String("type", typeName), zap.Int("reindexed", n), zap.Error(err))
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d reindexed\n", typeName, n)
			}
			return nil
		},
	}
}

func newClearCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <type>...",
		Short: "Remove every entry of record types",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context(), rt)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, typeName := range args {
				n, err := a.Sync.ClearIndex(cmd.Context(), typeName)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d removed\n", typeName, n)
			}
			return nil
		},
	}
}

func newListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list <type>",
		Short: "List the stored entries of a record type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := bootstrap(cmd.Context(), rt)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := a.Index.ListAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			items := make([]map[string]string, len(entries))
			for i, e := range entries {
				items[i] = map[string]string{"id": e.RecordID, "uri": e.URI, "digest": e.Digest}
			}
			return writeJSON(cmd.OutOrStdout(), items)
		},
	}
}
