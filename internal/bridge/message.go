package bridge

import (
	"encoding/json"
	"fmt"

	"cuebridge/internal/cue"
)

// TabID identifies a context registered with a Coordinator. Zero means none.
type TabID int64

// MessageType is the discriminator of a relay message.
type MessageType string

const (
	TypeUpdateScriptTracks MessageType = "update-script-tracks"
	TypeEditorBridge       MessageType = "editor-bridge"
	TypeIDAnnounce         MessageType = "id-announce"
	TypeBridge             MessageType = "bridge"
	TypeForward            MessageType = "forward"
)

// Message is the union of every relay message. Only the fields belonging to
// Type are meaningful.
type Message struct {
	Type MessageType `json:"type"`

	// update-script-tracks
	Tracks      []cue.Cue `json:"tracks,omitempty"`
	LastTouched float64   `json:"lastTouched,omitempty"`

	// editor-bridge: editorTabId is sent to the player, playerTabId to the
	// editor.
	EditorTabID TabID `json:"editorTabId,omitempty"`
	PlayerTabID TabID `json:"playerTabId,omitempty"`

	// id-announce
	ID string `json:"id,omitempty"`

	// bridge
	URL string `json:"url,omitempty"`

	// forward
	TabID   TabID    `json:"tabId,omitempty"`
	Message *Message `json:"message,omitempty"`
}

// UpdateTracks builds an update-script-tracks message.
func UpdateTracks(tracks []cue.Cue, lastTouched float64) Message {
	return Message{Type: TypeUpdateScriptTracks, Tracks: cue.Clone(tracks), LastTouched: lastTouched}
}

// IDAnnounce builds an id-announce message.
func IDAnnounce(id string) Message {
	return Message{Type: TypeIDAnnounce, ID: id}
}

// EditorHandshake tells a player which tab is its editor.
func EditorHandshake(editor TabID) Message {
	return Message{Type: TypeEditorBridge, EditorTabID: editor}
}

// PlayerHandshake tells an editor which tab is its player.
func PlayerHandshake(player TabID) Message {
	return Message{Type: TypeEditorBridge, PlayerTabID: player}
}

// BridgeRequest asks the Coordinator to bridge the sender with the tab at url.
func BridgeRequest(url string) Message {
	return Message{Type: TypeBridge, URL: url}
}

// Forward wraps msg for delivery to target.
func Forward(target TabID, msg Message) Message {
	return Message{Type: TypeForward, TabID: target, Message: &msg}
}

// Validate checks that the fields required by Type are present.
func (m Message) Validate() error {
	switch m.Type {
	case TypeUpdateScriptTracks, TypeIDAnnounce:
		return nil
	case TypeEditorBridge:
		if m.EditorTabID == 0 && m.PlayerTabID == 0 {
			return fmt.Errorf("%s: missing tab id", m.Type)
		}
		return nil
	case TypeBridge:
		if m.URL == "" {
			return fmt.Errorf("%s: missing url", m.Type)
		}
		return nil
	case TypeForward:
		if m.TabID == 0 || m.Message == nil {
			return fmt.Errorf("%s: missing tab id or message", m.Type)
		}
		return m.Message.Validate()
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
}

// DecodeMessage parses and validates a JSON message.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
