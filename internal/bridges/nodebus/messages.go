package nodebus

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/nodeconfig"
)

// ConfigMessage is the retained payload on <prefix>/<node>/config.
type ConfigMessage struct {
	Node      string          `json:"node"`
	Revision  string          `json:"revision"`
	CreatedAt time.Time       `json:"created_at"`
	Config    json.RawMessage `json:"config"`
}

// EventMessage is published on <prefix>/<node>/event/<op> for every
// committed edit.
type EventMessage struct {
	Node   string         `json:"node"`
	Op     string         `json:"op"`
	ID     string         `json:"id,omitempty"`
	Seq    uint64         `json:"seq"`
	Counts map[string]int `json:"counts"`
	At     time.Time      `json:"at"`
}

// OptionsMessage is the retained payload on
// <prefix>/<node>/api_target_options.
type OptionsMessage struct {
	Name    string                             `json:"name"`
	Address string                             `json:"address"`
	Options map[string]nodeconfig.TargetOption `json:"options"`
}

func newEventMessage(node string, change nodeconfig.Change) EventMessage {
	counts := make(map[string]int, len(change.Counts))
	for category, n := range change.Counts {
		counts[string(category)] = n
	}
	return EventMessage{
		Node:   node,
		Op:     change.Op,
		ID:     change.ID,
		Seq:    change.Revision,
		Counts: counts,
		At:     change.At.UTC(),
	}
}
