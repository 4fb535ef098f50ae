package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipsync/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and library status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.StatusResponse
			if err := ctx.getJSON("/api/status", &resp); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			rows := [][]string{
				{"Running", strconv.FormatBool(resp.Running)},
				{"PID", strconv.Itoa(resp.PID)},
				{"Database", resp.DatabasePath},
				{"Live sessions", strconv.Itoa(resp.LiveSessions)},
				{"Total records", strconv.FormatInt(resp.TotalRecords, 10)},
				{"Processed", strconv.FormatInt(resp.ProcessedCount, 10)},
				{"Placeholders", strconv.FormatInt(resp.Placeholders, 10)},
				{"Performers", strconv.FormatInt(resp.Performers, 10)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}
