package editsession

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Action names a keyboard-triggered operation.
type Action string

const (
	ToggleEditMode    Action = "toggleEditMode"
	DisplayTranscript Action = "displayTranscript"
	EditTrack         Action = "editTrack"
	AddTrack          Action = "addTrack"
	MarkPosition      Action = "markPosition"
	JumpBack          Action = "jumpBack"
	JumpForward       Action = "jumpForward"
	PreviousTrack     Action = "previousTrack"
	NextTrack         Action = "nextTrack"
	MoveTrackBack     Action = "moveTrackBack"
	MoveTrackForward  Action = "moveTrackForward"
	ShowHelp          Action = "showHelp"
	EditMetadata      Action = "editMetadata"
	OpenNotes         Action = "openNotes"
	Export            Action = "export"
)

var actionOrder = []struct {
	action      Action
	key         string
	description string
}{
	{ToggleEditMode, "r", "Toggle edit mode"},
	{DisplayTranscript, "t", "Show the transcript"},
	{EditTrack, "e", "Edit the last played cue"},
	{AddTrack, "f", "Add a cue at the marker or current time"},
	{MarkPosition, "d", "Mark the current time for the next added cue"},
	{JumpBack, "a", "Jump back (Alt for a fine step)"},
	{JumpForward, "s", "Jump forward (Alt for a fine step)"},
	{PreviousTrack, "q", "Go to the previous cue"},
	{NextTrack, "w", "Go to the next cue"},
	{MoveTrackBack, "x", "Move the last played cue earlier (Shift for a fine step)"},
	{MoveTrackForward, "c", "Move the last played cue later (Shift for a fine step)"},
	{ShowHelp, "h", "Show keyboard shortcuts"},
	{EditMetadata, "m", "Edit transcript metadata"},
	{OpenNotes, "n", "Open notes"},
	{Export, "p", "Export the transcript"},
}

// Actions returns every action in help order.
func Actions() []Action {
	out := make([]Action, len(actionOrder))
	for i, a := range actionOrder {
		out[i] = a.action
	}
	return out
}

// Description returns the help text for a.
func (a Action) Description() string {
	for _, entry := range actionOrder {
		if entry.action == a {
			return entry.description
		}
	}
	return string(a)
}

// Shortcuts maps each action to one lowercase character.
type Shortcuts map[Action]string

// DefaultShortcuts returns the built-in key map.
func DefaultShortcuts() Shortcuts {
	out := make(Shortcuts, len(actionOrder))
	for _, entry := range actionOrder {
		out[entry.action] = entry.key
	}
	return out
}

// ParseShortcuts merges overrides onto the defaults. Unknown action names,
// multi-character keys, and keys bound to two actions are rejected.
func ParseShortcuts(overrides map[string]string) (Shortcuts, error) {
	out := DefaultShortcuts()
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		action := Action(strings.TrimSpace(name))
		if _, ok := out[action]; !ok {
			return nil, fmt.Errorf("shortcut %q: unknown action", name)
		}
		key := strings.ToLower(strings.TrimSpace(overrides[name]))
		if utf8.RuneCountInString(key) != 1 {
			return nil, fmt.Errorf("shortcut %q: key must be one character, got %q", name, overrides[name])
		}
		out[action] = key
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate reports keys bound to more than one action.
func (s Shortcuts) Validate() error {
	owners := make(map[string]Action, len(s))
	for _, action := range Actions() {
		key, ok := s[action]
		if !ok {
			continue
		}
		if other, dup := owners[key]; dup {
			return fmt.Errorf("shortcut %q is bound to both %s and %s", key, other, action)
		}
		owners[key] = action
	}
	return nil
}

// Lookup returns the action bound to key.
func (s Shortcuts) Lookup(key string) (Action, bool) {
	key = strings.ToLower(key)
	for action, bound := range s {
		if bound == key {
			return action, true
		}
	}
	return "", false
}

// Map returns the shortcuts keyed by action name, the shape they are
// persisted in.
func (s Shortcuts) Map() map[string]string {
	out := make(map[string]string, len(s))
	for action, key := range s {
		out[string(action)] = key
	}
	return out
}

// HelpEntry is one line of the shortcut help dialog.
type HelpEntry struct {
	Action      Action
	Key         string
	Description string
}

// Help lists the bindings in help order.
func (s Shortcuts) Help() []HelpEntry {
	out := make([]HelpEntry, 0, len(actionOrder))
	for _, entry := range actionOrder {
		if key, ok := s[entry.action]; ok {
			out = append(out, HelpEntry{Action: entry.action, Key: key, Description: entry.description})
		}
	}
	return out
}
