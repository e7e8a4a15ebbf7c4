package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cuebridge/internal/api"
	"cuebridge/internal/ipc"
	"cuebridge/internal/preflight"
)

type statusCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

type statusReport struct {
	Daemon *api.DaemonStatus `json:"daemon"`
	Error  string            `json:"error,omitempty"`
	Checks []statusCheck     `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and environment checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report := statusReport{}
			client, dialErr := ctx.dialClient()
			if dialErr == nil {
				resp, err := client.Status()
				client.Close()
				if err != nil {
					return fmt.Errorf("fetch status: %w", err)
				}
				report.Daemon = &resp.Status
			} else {
				report.Error = dialErr.Error()
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				report.Checks = append(report.Checks, statusCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
			}

			if jsonOut {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string
			lines = append(lines, renderSectionHeader("Daemon", colorize)...)
			lines = append(lines, daemonLines(report.Daemon, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			lines = append(lines, preflightLines(results, colorize)...)
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newTabsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "tabs",
		Short: "List browsing contexts connected to the coordinator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Tabs()
				if err != nil {
					return fmt.Errorf("list tabs: %w", err)
				}
				if jsonOut {
					return writeJSON(cmd, api.TabListResponse{Tabs: resp.Tabs})
				}
				out := cmd.OutOrStdout()
				if len(resp.Tabs) == 0 {
					fmt.Fprintln(out, "No tabs connected")
					return nil
				}
				rows := make([][]string, 0, len(resp.Tabs))
				for _, tab := range resp.Tabs {
					partner := "-"
					if tab.Partner != 0 {
						partner = strconv.FormatInt(tab.Partner, 10)
					}
					role := tab.Role
					if role == "" {
						role = "-"
					}
					rows = append(rows, []string{strconv.FormatInt(tab.ID, 10), role, partner, tab.URL})
				}
				fmt.Fprint(out, renderTable([]string{"ID", "Role", "Partner", "URL"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignWrap}))
				fmt.Fprintln(out)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
