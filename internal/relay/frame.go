// Package relay carries the bridge Coordinator and the shared kv store over
// WebSocket so that player and editor contexts can live in other processes.
//
// Every frame is one JSON text message. Bridge messages travel unchanged;
// storage requests carry a requestId that the matching storage-value reply
// echoes. Store changes are pushed to every connection as storage-changed
// frames in write order.
package relay

import (
	"encoding/json"

	"cuebridge/internal/bridge"
)

// Frame types beyond the bridge message types.
const (
	TypeHello          bridge.MessageType = "hello"
	TypeStorageGet     bridge.MessageType = "storage-get"
	TypeStorageSet     bridge.MessageType = "storage-set"
	TypeStorageRemove  bridge.MessageType = "storage-remove"
	TypeStorageKeys    bridge.MessageType = "storage-keys"
	TypeStorageValue   bridge.MessageType = "storage-value"
	TypeStorageChanged bridge.MessageType = "storage-changed"
)

// Frame is the wire envelope. Bridge message fields are inlined.
type Frame struct {
	bridge.Message

	RequestID uint64          `json:"requestId,omitempty"`
	Key       string          `json:"key,omitempty"`
	Prefix    string          `json:"prefix,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	OldValue  json.RawMessage `json:"oldValue,omitempty"`
	Keys      []string        `json:"keys,omitempty"`
	NotFound  bool            `json:"notFound,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func isBridgeType(t bridge.MessageType) bool {
	switch t {
	case bridge.TypeBridge, bridge.TypeForward, bridge.TypeEditorBridge,
		bridge.TypeUpdateScriptTracks, bridge.TypeIDAnnounce:
		return true
	}
	return false
}
