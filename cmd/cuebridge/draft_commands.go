package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cuebridge/internal/ipc"
)

func newDraftsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drafts",
		Aliases: []string{"draft"},
		Short:   "Manage cue lists saved while no editor was bridged",
	}
	cmd.AddCommand(
		newDraftListCommand(ctx),
		newDraftExportCommand(ctx),
		newDraftPromoteCommand(ctx),
		newDraftDeleteCommand(ctx),
		newDraftClearCommand(ctx),
	)
	return cmd
}

func newDraftListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved drafts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DraftList()
				if err != nil {
					return fmt.Errorf("list drafts: %w", err)
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Drafts) == 0 {
					fmt.Fprintln(out, "No drafts saved")
					return nil
				}
				rows := make([][]string, 0, len(resp.Drafts))
				for _, d := range resp.Drafts {
					title := d.Title
					if title == "" {
						title = "-"
					}
					rows = append(rows, []string{d.Key, title, strconv.Itoa(d.Cues)})
				}
				fmt.Fprint(out, renderTable([]string{"Key", "Title", "Cues"}, rows,
					[]columnAlignment{alignLeft, alignWrap, alignRight}))
				fmt.Fprintln(out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newDraftExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	var format string
	cmd := &cobra.Command{
		Use:   "export KEY | DOMAIN ID",
		Short: "Write a draft as a transcript file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := transcriptKeyArg(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DraftExport(key)
				if err != nil {
					return fmt.Errorf("export draft: %w", err)
				}
				written, err := writeTranscriptOutput(cmd.OutOrStdout(), resp.Transcript, output, format)
				if err != nil {
					return err
				}
				if written != "-" {
					fmt.Fprintf(cmd.OutOrStdout(), "Exported draft %s to %s\n", key, written)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory (- for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "Output format: json or yaml (default from the file extension, else json)")
	return cmd
}

func newDraftPromoteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "promote KEY | DOMAIN ID",
		Short: "Import a draft into the library and discard it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := transcriptKeyArg(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DraftPromote(key)
				if err != nil {
					return fmt.Errorf("promote draft: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Promoted draft to %s\n", resp.Key)
				return nil
			})
		},
	}
}

func newDraftDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete KEY | DOMAIN ID",
		Aliases: []string{"rm"},
		Short:   "Discard a saved draft",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := transcriptKeyArg(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.DraftDelete(key); err != nil {
					return fmt.Errorf("delete draft: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted draft %s\n", key)
				return nil
			})
		},
	}
}

func newDraftClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard every saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DraftClear()
				if err != nil {
					return fmt.Errorf("clear drafts: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s\n", resp.Removed, plural(resp.Removed, "draft", "drafts"))
				return nil
			})
		},
	}
}
