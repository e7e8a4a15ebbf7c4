package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cuebridge/internal/api"
	"cuebridge/internal/cue"
	"cuebridge/internal/ipc"
)

func newTranscriptsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transcripts",
		Aliases: []string{"transcript", "t"},
		Short:   "Manage stored transcripts",
	}
	cmd.AddCommand(
		newTranscriptListCommand(ctx),
		newTranscriptShowCommand(ctx),
		newTranscriptImportCommand(ctx),
		newTranscriptExportCommand(ctx),
		newTranscriptDeleteCommand(ctx),
		newTranscriptValidateCommand(),
	)
	return cmd
}

func newTranscriptListCommand(ctx *commandContext) *cobra.Command {
	var domain string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored transcripts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TranscriptList(domain)
				if err != nil {
					return fmt.Errorf("list transcripts: %w", err)
				}
				if jsonOut {
					return writeJSON(cmd, api.TranscriptListResponse{Transcripts: resp.Transcripts})
				}
				out := cmd.OutOrStdout()
				if len(resp.Transcripts) == 0 {
					fmt.Fprintln(out, "No transcripts stored")
					return nil
				}
				rows := make([][]string, 0, len(resp.Transcripts))
				for _, t := range resp.Transcripts {
					rows = append(rows, []string{
						t.Key,
						t.Title,
						t.Type,
						strings.Join(t.Languages, ", "),
						strconv.Itoa(t.Cues),
						t.Length,
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Key", "Title", "Type", "Languages", "Cues", "Length"}, rows,
					[]columnAlignment{alignLeft, alignWrap, alignLeft, alignLeft, alignRight, alignRight},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "Only list transcripts for this platform")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newTranscriptShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show KEY | DOMAIN ID",
		Short: "Show a transcript's metadata and cues",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, id, err := transcriptRef(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TranscriptGet(domain, id)
				if err != nil {
					return fmt.Errorf("get transcript: %w", err)
				}
				if jsonOut {
					return writeJSON(cmd, api.TranscriptResponse{Key: resp.Key, Transcript: resp.Transcript})
				}
				printTranscript(cmd, resp.Key, resp.Transcript)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func printTranscript(cmd *cobra.Command, key string, t cue.Transcript) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Key:    %s\n", key)
	fmt.Fprintf(out, "Title:  %s\n", cue.Title(t.Metadata))
	fmt.Fprintf(out, "Type:   %s\n", t.Metadata.Type)
	if t.Source.URL != "" {
		fmt.Fprintf(out, "URL:    %s\n", t.Source.URL)
	}
	fmt.Fprintf(out, "Length: %s\n", cue.DisplaySeconds(t.LastTimestamp()))
	for _, script := range t.Scripts {
		fmt.Fprintln(out)
		header := script.Language
		if script.Author != "" {
			header += " by " + script.Author
		}
		fmt.Fprintf(out, "%s (%d cues)\n", header, len(script.Tracks))
		if len(script.Tracks) == 0 {
			continue
		}
		rows := make([][]string, 0, len(script.Tracks))
		for _, c := range script.Tracks {
			rows = append(rows, []string{cue.DisplaySeconds(c.Timestamp), c.Text})
		}
		fmt.Fprint(out, renderTable([]string{"Time", "Text"}, rows, []columnAlignment{alignRight, alignWrap}))
		fmt.Fprintln(out)
	}
}

func newTranscriptImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Import transcript files (JSON or YAML) into the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcripts := make([]cue.Transcript, 0, len(args))
			for _, path := range args {
				t, err := readTranscriptFile(path)
				if err != nil {
					return err
				}
				if err := t.Validate(); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				transcripts = append(transcripts, t)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				for i, t := range transcripts {
					resp, err := client.TranscriptImport(t)
					if err != nil {
						return fmt.Errorf("import %s: %w", args[i], err)
					}
					fmt.Fprintf(out, "Imported %s (%d cues)\n", resp.Key, len(t.Tracks()))
				}
				return nil
			})
		},
	}
}

func newTranscriptExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	var format string
	cmd := &cobra.Command{
		Use:   "export KEY | DOMAIN ID",
		Short: "Write a stored transcript to a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, id, err := transcriptRef(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TranscriptGet(domain, id)
				if err != nil {
					return fmt.Errorf("get transcript: %w", err)
				}
				written, err := writeTranscriptOutput(cmd.OutOrStdout(), resp.Transcript, output, format)
				if err != nil {
					return err
				}
				if written != "-" {
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", resp.Key, written)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory (- for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "Output format: json or yaml (default from the file extension, else json)")
	return cmd
}

func newTranscriptDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete KEY | DOMAIN ID",
		Aliases: []string{"rm"},
		Short:   "Remove a transcript from the library",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, id, err := transcriptRef(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.TranscriptDelete(domain, id); err != nil {
					return fmt.Errorf("delete transcript: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", cue.TranscriptKey(domain, id))
				return nil
			})
		},
	}
}

func newTranscriptValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate FILE...",
		Short:       "Check transcript files without importing them",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range args {
				t, err := readTranscriptFile(path)
				if err == nil {
					err = t.Validate()
				}
				if err != nil {
					invalid++
					fmt.Fprintf(out, "INVALID %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "OK      %s (%s, %d cues)\n", path, t.Key(), len(t.Tracks()))
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d files invalid", invalid, len(args))
			}
			return nil
		},
	}
}
