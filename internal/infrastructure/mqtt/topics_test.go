package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{Prefix: "nodeconfig", Node: "kitchen"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Config", topics.Config(), "nodeconfig/kitchen/config"},
		{"Event", topics.Event("delete"), "nodeconfig/kitchen/event/delete"},
		{"AllEvents", topics.AllEvents(), "nodeconfig/kitchen/event/+"},
		{"Status", topics.Status(), "nodeconfig/kitchen/status"},
		{"APITargetOptions", topics.APITargetOptions(), "nodeconfig/kitchen/api_target_options"},
		{"AllAPITargetOptions", topics.AllAPITargetOptions(), "nodeconfig/+/api_target_options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestNodeFromTopic(t *testing.T) {
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"nodeconfig/kitchen/api_target_options", "kitchen", true},
		{"nodeconfig/hall/event/delete", "hall", true},
		{"nodeconfig/kitchen", "", false},
		{"nodeconfig//config", "", false},
		{"other/kitchen/config", "", false},
		{"nodeconfigx/kitchen/config", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, ok := NodeFromTopic("nodeconfig", tt.topic)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NodeFromTopic(%q) = (%q, %v), want (%q, %v)", tt.topic, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
