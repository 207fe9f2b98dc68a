package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vidcompress/journal"
)

func HistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [job-id]",
		Short: "List journaled invocations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j := a.Journal()
			if j == nil {
				return fmt.Errorf("journal is disabled (set VIDCOMPRESS_DATA_DIR)")
			}

			var (
				entries []journal.Entry
				err     error
			)
			if len(args) == 1 {
				entries, err = j.ListByJob(args[0])
			} else {
				entries, err = j.List()
			}
			if err != nil {
				return fmt.Errorf("failed to list journal: %w", err)
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No journal entries")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tJOB ID\tOUTCOME\tRECORD\tERROR")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.JobID, e.Outcome, e.RecordID, e.Error)
			}
			return w.Flush()
		},
	}
	return cmd
}
