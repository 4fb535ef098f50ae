package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clipsync/internal/api"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var performerID string
	var categoryIDs []string
	var maxItems int
	var maxDuration int
	var includeExisting bool
	var skipIDs []string
	var single bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "import <locator>",
		Short: "Import videos from a playlist or a single item URL",
		Long: `Import videos from a source locator.

A locator may be an aparat.com playlist page, a twitter.com/x.com account
URL, a bare or @-prefixed handle, or (with --single) a direct item URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if performerID == "" {
				return errors.New("--performer is required")
			}
			locator := args[0]

			if single {
				return runSingleImport(cmd, ctx, locator, performerID, categoryIDs, jsonOutput)
			}

			req := api.StartImportRequest{
				Locator:            locator,
				PerformerID:        performerID,
				CategoryIDs:        categoryIDs,
				MaxDurationMinutes: maxDuration,
				MaxItems:           maxItems,
				CancelledIDs:       skipIDs,
			}
			if includeExisting {
				skip := false
				req.SkipExisting = &skip
			}

			var resp api.StartImportResponse
			if err := ctx.postJSON("/api/imports", req, &resp); err != nil {
				return err
			}

			body, err := ctx.stream("/api/imports/progress/" + resp.SessionID)
			if err != nil {
				return err
			}
			defer body.Close()

			return renderProgress(cmd.OutOrStdout(), body, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&performerID, "performer", "p", "", "Performer id to attach imported items to")
	cmd.Flags().StringSliceVar(&categoryIDs, "category", nil, "Category id to tag imported items with (repeatable)")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "Cap the number of playlist items considered")
	cmd.Flags().IntVar(&maxDuration, "max-duration", 0, "Duration ceiling in minutes (0 uses the configured default)")
	cmd.Flags().BoolVar(&includeExisting, "include-existing", false, "Re-import items that already exist")
	cmd.Flags().StringSliceVar(&skipIDs, "skip", nil, "Item id to skip (repeatable)")
	cmd.Flags().BoolVar(&single, "single", false, "Import a single item synchronously")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit raw progress events as JSON")

	return cmd
}

func runSingleImport(cmd *cobra.Command, ctx *commandContext, locator, performerID string, categoryIDs []string, jsonOutput bool) error {
	req := api.ImportVideoRequest{
		Locator:     locator,
		PerformerID: performerID,
		CategoryIDs: categoryIDs,
	}
	var resp api.ImportVideoResponse
	if err := ctx.postJSON("/api/imports/video", req, &resp); err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, resp)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported record %s\n", resp.RecordID)
	if resp.StreamURL != "" {
		fmt.Fprintf(out, "  stream:    %s\n", resp.StreamURL)
	}
	if resp.RawURL != "" {
		fmt.Fprintf(out, "  raw:       %s\n", resp.RawURL)
	}
	if resp.AudioURL != "" {
		fmt.Fprintf(out, "  audio:     %s\n", resp.AudioURL)
	}
	if resp.ThumbnailURL != "" {
		fmt.Fprintf(out, "  thumbnail: %s\n", resp.ThumbnailURL)
	}
	return nil
}
