package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"cuebridge/internal/api"
	"cuebridge/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// daemonLines renders the daemon section of `cuebridge status`. A nil status
// means the daemon could not be reached.
func daemonLines(status *api.DaemonStatus, colorize bool) []string {
	if status == nil {
		return []string{renderStatusLine("Daemon", statusWarn, "Not running", colorize)}
	}
	lines := make([]string, 0, 6)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Stopped", colorize))
	}
	if status.RelayAddress != "" {
		lines = append(lines, renderStatusLine("Relay", statusInfo, status.RelayAddress, colorize))
	}
	tabsKind := statusInfo
	if status.PendingBridges > 0 {
		tabsKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Tabs", tabsKind,
		fmt.Sprintf("%d connected, %d pending %s", status.Tabs, status.PendingBridges, plural(status.PendingBridges, "bridge", "bridges")), colorize))
	lines = append(lines, renderStatusLine("Library", statusInfo,
		fmt.Sprintf("%d %s, %d %s", status.Transcripts, plural(status.Transcripts, "transcript", "transcripts"),
			status.Drafts, plural(status.Drafts, "draft", "drafts")), colorize))
	if status.EditingID != "" {
		lines = append(lines, renderStatusLine("Editing", statusInfo, status.EditingID, colorize))
	}
	if status.LogPath != "" {
		lines = append(lines, renderStatusLine("Log", statusInfo, status.LogPath, colorize))
	}
	return lines
}

// preflightLines renders environment checks followed by a one-line summary.
// The remote source and open command are optional, so failures are warnings.
func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results)+1)
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	failed := preflight.Failed(results)
	switch {
	case len(results) == 0:
		lines = append(lines, renderStatusLine("Summary", statusInfo, "No checks configured", colorize))
	case len(failed) == 0:
		lines = append(lines, renderStatusLine("Summary", statusOK, "All checks passed", colorize))
	default:
		lines = append(lines, renderStatusLine("Summary", statusWarn,
			fmt.Sprintf("%d of %d checks failed", len(failed), len(results)), colorize))
	}
	return lines
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
