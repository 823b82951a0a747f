package mqtt

import (
	"fmt"
	"strings"
)

// Topic segments under <prefix>/<node>/.
const (
	segmentConfig           = "config"
	segmentEvent            = "event"
	segmentStatus           = "status"
	segmentAPITargetOptions = "api_target_options"
)

// Topics builds the MQTT topics of one node.
//
// Every topic is scoped as <prefix>/<node>/...:
//
//	topics := mqtt.Topics{Prefix: "nodeconfig", Node: "kitchen"}
//	topics.Config()          // "nodeconfig/kitchen/config"
//	topics.Event("delete")   // "nodeconfig/kitchen/event/delete"
type Topics struct {
	Prefix string
	Node   string
}

func (t Topics) base() string {
	return fmt.Sprintf("%s/%s", t.Prefix, t.Node)
}

// Config returns the retained topic carrying the last saved config.
func (t Topics) Config() string {
	return t.base() + "/" + segmentConfig
}

// Event returns the topic for one kind of edit event.
func (t Topics) Event(op string) string {
	return fmt.Sprintf("%s/%s/%s", t.base(), segmentEvent, op)
}

// AllEvents matches every edit event of the node.
func (t Topics) AllEvents() string {
	return fmt.Sprintf("%s/%s/+", t.base(), segmentEvent)
}

// Status returns the retained online/offline topic (also used for LWT).
func (t Topics) Status() string {
	return t.base() + "/" + segmentStatus
}

// APITargetOptions returns the retained topic carrying the node's own
// API target option table.
func (t Topics) APITargetOptions() string {
	return t.base() + "/" + segmentAPITargetOptions
}

// AllAPITargetOptions matches the option tables of every node under the prefix.
func (t Topics) AllAPITargetOptions() string {
	return fmt.Sprintf("%s/+/%s", t.Prefix, segmentAPITargetOptions)
}

// NodeFromTopic extracts the node segment of a topic under prefix.
// It returns false when the topic does not belong to the prefix.
func NodeFromTopic(prefix, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", false
	}
	node, _, ok := strings.Cut(rest, "/")
	if !ok || node == "" {
		return "", false
	}
	return node, true
}
