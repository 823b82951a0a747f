package nodeconfig

import (
	"encoding/json"
	"errors"
	"testing"
)

const sampleConfigJSON = `{
	"metadata": {"id": "Living Room", "floor": "1"},
	"wifi": {"ssid": "home"},
	"ir_blaster": {"pin": "4", "target": ["tv"], "macros": {}},
	"device1": {"_type": "dimmer", "nickname": "Lamp", "ip": "192.168.1.50", "min_rule": 1, "max_rule": 100, "default_rule": 50, "schedule": {"08:00": "80"}},
	"device2": {"_type": "mosfet", "nickname": "Fan", "pin": "4", "default_rule": "enabled", "schedule": {}},
	"sensor1": {"_type": "pir", "nickname": "Motion", "pin": "15", "default_rule": 5, "targets": ["device1", "device2"], "schedule": {}},
	"sensor2": {"_type": null}
}`

func TestConfigUnmarshal(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(sampleConfigJSON), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(cfg.Instances) != 4 {
		t.Fatalf("len(Instances) = %d, want 4", len(cfg.Instances))
	}
	if cfg.Instances["device1"].Type != "dimmer" {
		t.Errorf("device1 type = %q, want dimmer", cfg.Instances["device1"].Type)
	}
	if cfg.Instances["sensor2"].Configured() {
		t.Error("sensor2 should be unconfigured")
	}
	if _, ok := cfg.Instances["device1"].Params[ParamType]; ok {
		t.Error("_type must not be stored in Params")
	}

	targets := cfg.Instances["sensor1"].Targets()
	if len(targets) != 2 || targets[0] != "device1" || targets[1] != "device2" {
		t.Errorf("sensor1 targets = %v", targets)
	}
	if cfg.IRBlaster == nil || cfg.IRBlaster.Pin != "4" {
		t.Errorf("IRBlaster = %+v", cfg.IRBlaster)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfigMarshalKeepsFlatShape(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(sampleConfigJSON), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	data, err := json.Marshal(&cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decoding marshalled config: %v", err)
	}
	for _, key := range []string{"metadata", "wifi", "ir_blaster", "device1", "device2", "sensor1", "sensor2"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("marshalled config missing %q", key)
		}
	}
	if raw["device2"][ParamType] != "mosfet" {
		t.Errorf("device2 _type = %v, want mosfet", raw["device2"][ParamType])
	}
	if v, ok := raw["sensor2"][ParamType]; !ok || v != nil {
		t.Errorf("sensor2 _type = %v (present %v), want explicit null", v, ok)
	}
}

func TestConfigUnmarshalRejectsUnknownKeys(t *testing.T) {
	var cfg Config
	err := json.Unmarshal([]byte(`{"metadata": {}, "relay1": {"_type": "mosfet"}}`), &cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Unmarshal() error = %v, want ErrInvalidConfig", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Config
	}{
		{
			name: "gap in devices",
			build: func() *Config {
				cfg := NewConfig()
				cfg.Instances["device1"] = NewUnconfigured()
				cfg.Instances["device3"] = NewUnconfigured()
				return cfg
			},
		},
		{
			name: "sensor targets missing device",
			build: func() *Config {
				cfg := NewConfig()
				s := &Instance{Type: "pir", Params: Params{}}
				s.SetTargets([]string{"device1"})
				cfg.Instances["sensor1"] = s
				return cfg
			},
		},
		{
			name: "sensor targets sensor",
			build: func() *Config {
				cfg := NewConfig()
				s := &Instance{Type: "pir", Params: Params{}}
				s.SetTargets([]string{"sensor1"})
				cfg.Instances["sensor1"] = s
				return cfg
			},
		},
		{
			name: "ir blaster targets missing instance",
			build: func() *Config {
				cfg := NewConfig()
				cfg.IRBlaster = &IRBlaster{Pin: "4", Target: []string{"device2"}}
				cfg.Instances["device1"] = NewUnconfigured()
				return cfg
			},
		},
		{
			name: "nil record",
			build: func() *Config {
				cfg := NewConfig()
				cfg.Instances["device1"] = nil
				return cfg
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.build().Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigDeepCopyDoesNotAlias(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(sampleConfigJSON), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	cpy := cfg.DeepCopy()
	cpy.Instances["device1"].Params[ParamSchedule].(map[string]any)["09:00"] = "10"
	targets := cpy.Instances["sensor1"].Params[ParamTargets].([]string)
	targets[0] = "device9"
	cpy.IRBlaster.Target[0] = "ac"

	if _, ok := cfg.Instances["device1"].Schedule()["09:00"]; ok {
		t.Error("schedule aliased between copies")
	}
	if cfg.Instances["sensor1"].Targets()[0] != "device1" {
		t.Error("targets aliased between copies")
	}
	if cfg.IRBlaster.Target[0] != "tv" {
		t.Error("ir_blaster target aliased between copies")
	}
}

func TestConfigIDsSortedByIndex(t *testing.T) {
	cfg := NewConfig()
	for i := 1; i <= 11; i++ {
		cfg.Instances[MakeID(CategoryDevice, i)] = NewUnconfigured()
	}
	cfg.Instances["sensor1"] = NewUnconfigured()

	ids := cfg.IDs(CategoryDevice)
	if len(ids) != 11 {
		t.Fatalf("len(IDs) = %d, want 11", len(ids))
	}
	if ids[1] != "device2" || ids[10] != "device11" {
		t.Errorf("IDs() = %v, want numeric order", ids)
	}
	if cfg.Count(CategorySensor) != 1 {
		t.Errorf("Count(sensor) = %d, want 1", cfg.Count(CategorySensor))
	}
}
