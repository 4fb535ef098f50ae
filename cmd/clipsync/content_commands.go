package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clipsync/internal/api"
)

func newContentCommand(ctx *commandContext) *cobra.Command {
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Inspect and maintain imported content",
	}

	contentCmd.AddCommand(newContentListCommand(ctx))
	contentCmd.AddCommand(newContentPruneCommand(ctx))

	return contentCmd
}

func newContentListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List imported content, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.ContentListResponse
			if err := ctx.getJSON("/api/content?limit="+strconv.Itoa(limit), &resp); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}
			if len(resp.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No content imported yet.")
				return nil
			}

			rows := make([][]string, 0, len(resp.Items))
			for _, item := range resp.Items {
				rows = append(rows, []string{
					item.ID,
					item.Title,
					item.Source,
					formatDuration(item.DurationSeconds),
					formatState(item),
					item.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Source", "Duration", "State", "Created"},
				rows, 3,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of records to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit records as JSON")
	return cmd
}

func newContentPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-stale",
		Short: "Remove placeholder records left behind by interrupted imports",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.PruneResponse
			if err := ctx.postJSON("/api/content/prune-stale", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d stale placeholder(s)\n", resp.Pruned)
			return nil
		},
	}
}

func formatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	}
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func formatState(item api.ContentItem) string {
	switch {
	case item.Processed && item.Uploaded:
		return "published"
	case item.Processed:
		return "processed"
	default:
		return "placeholder"
	}
}
