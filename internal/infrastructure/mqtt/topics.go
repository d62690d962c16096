package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "visionpilot"

// Control actions accepted on the control topics.
const (
	ActionStart = "start"
	ActionStop  = "stop"
)

// Topics builds topic names under one prefix.
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. Surrounding slashes are trimmed.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root segment.
func (t Topics) Prefix() string { return t.prefix }

// Availability is the retained online/offline topic carrying the LWT.
func (t Topics) Availability() string { return t.prefix + "/availability" }

// Status is the retained status snapshot topic.
func (t Topics) Status() string { return t.prefix + "/status" }

// Transition carries one message per state change.
func (t Topics) Transition() string { return t.prefix + "/transition" }

// Session carries session summaries.
func (t Topics) Session() string { return t.prefix + "/session" }

// Control is the inbound topic for one action.
//
// Example: visionpilot/control/start
func (t Topics) Control(action string) string { return t.prefix + "/control/" + action }

// AllControl matches every control action.
func (t Topics) AllControl() string { return t.prefix + "/control/+" }

// ControlAction extracts the action from a control topic. ok is false for
// topics outside the control namespace.
func (t Topics) ControlAction(topic string) (action string, ok bool) {
	action, ok = strings.CutPrefix(topic, t.prefix+"/control/")
	if !ok || action == "" || strings.Contains(action, "/") {
		return "", false
	}
	return action, true
}
