package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"vidcompress/airtable"
	"vidcompress/metalogger"
)

func RecordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Find, update or delete Airtable records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "find <job-id>",
		Short: "Print the record id logged for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lookup := a.Metadata().FindRecordByJobID(cmd.Context(), args[0])
			switch lookup.Status {
			case metalogger.Found:
				fmt.Fprintln(cmd.OutOrStdout(), lookup.RecordID)
				return nil
			case metalogger.NotFound:
				return fmt.Errorf("no record for job %s", args[0])
			default:
				return fmt.Errorf("lookup failed: %w", lookup.Err)
			}
		},
	})

	updateCmd := &cobra.Command{
		Use:   "update <record-id>",
		Short: "Patch fields of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("fields")
			var fields airtable.Fields
			if err := json.Unmarshal([]byte(raw), &fields); err != nil || len(fields) == 0 {
				return fmt.Errorf("--fields must be a non-empty JSON object")
			}

			rec, err := a.Metadata().UpdateRecord(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
	updateCmd.Flags().String("fields", "", `Fields to set, e.g. '{"Status":"Archived"}'`)
	updateCmd.MarkFlagRequired("fields")
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.Metadata().DeleteRecord(cmd.Context(), args[0])
			switch out.Status {
			case metalogger.Deleted:
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			case metalogger.DeleteNotFound:
				return fmt.Errorf("record %s not found", args[0])
			default:
				return fmt.Errorf("delete failed: %w", out.Err)
			}
		},
	})

	return cmd
}
