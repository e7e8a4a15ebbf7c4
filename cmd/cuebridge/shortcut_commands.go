package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cuebridge/internal/ipc"
)

func newShortcutsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "shortcuts",
		Aliases: []string{"keys"},
		Short:   "Show or change the player keyboard shortcuts",
	}
	cmd.AddCommand(
		newShortcutsShowCommand(ctx),
		newShortcutsSetCommand(ctx),
		newShortcutsResetCommand(ctx),
	)
	return cmd
}

func newShortcutsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List every action and its key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ShortcutsGet()
				if err != nil {
					return fmt.Errorf("get shortcuts: %w", err)
				}
				return printShortcuts(cmd, resp, jsonOut)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newShortcutsSetCommand(ctx *commandContext) *cobra.Command {
	var indicator string
	cmd := &cobra.Command{
		Use:   "set ACTION=KEY...",
		Short: "Rebind actions and toggle the edit-mode indicator",
		Example: "  cuebridge shortcuts set addTrack=g\n" +
			"  cuebridge shortcuts set --indicator off",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseBindings(args)
			if err != nil {
				return err
			}
			var show *bool
			if cmd.Flags().Changed("indicator") {
				value, err := parseOnOff(indicator)
				if err != nil {
					return err
				}
				show = &value
			}
			if len(overrides) == 0 && show == nil {
				return errors.New("nothing to change: pass ACTION=KEY pairs or --indicator")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ShortcutsSet(overrides, show)
				if err != nil {
					return fmt.Errorf("set shortcuts: %w", err)
				}
				return printShortcuts(cmd, resp, false)
			})
		},
	}
	cmd.Flags().StringVar(&indicator, "indicator", "", "Show the edit-mode indicator: on or off")
	return cmd
}

func newShortcutsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop stored overrides and return to the configured keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ShortcutsReset()
				if err != nil {
					return fmt.Errorf("reset shortcuts: %w", err)
				}
				return printShortcuts(cmd, resp, false)
			})
		},
	}
}

func printShortcuts(cmd *cobra.Command, resp *ipc.ShortcutsResponse, jsonOut bool) error {
	if jsonOut {
		return writeJSON(cmd, resp)
	}
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(resp.Bindings))
	for _, b := range resp.Bindings {
		rows = append(rows, []string{b.Key, b.Action, b.Description})
	}
	fmt.Fprint(out, renderTable([]string{"Key", "Action", "Description"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignWrap}))
	fmt.Fprintln(out)
	state := "hidden"
	if resp.ShowIndicator {
		state = "shown"
	}
	fmt.Fprintf(out, "Edit-mode indicator: %s\n", state)
	return nil
}

func parseBindings(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(args))
	for _, arg := range args {
		action, key, ok := strings.Cut(arg, "=")
		action = strings.TrimSpace(action)
		if !ok || action == "" {
			return nil, fmt.Errorf("binding %q: want ACTION=KEY", arg)
		}
		out[action] = key
	}
	return out, nil
}

func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "yes", "show":
		return true, nil
	case "off", "false", "no", "hide":
		return false, nil
	default:
		return false, fmt.Errorf("--indicator: want on or off, got %q", value)
	}
}
