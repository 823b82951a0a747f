package nodeconfig

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Well-known instance parameter names.
const (
	ParamType        = "_type"
	ParamNickname    = "nickname"
	ParamPin         = "pin"
	ParamIP          = "ip"
	ParamURI         = "uri"
	ParamOnPath      = "on_path"
	ParamOffPath     = "off_path"
	ParamDefaultRule = "default_rule"
	ParamMinRule     = "min_rule"
	ParamMaxRule     = "max_rule"
	ParamSchedule    = "schedule"
	ParamTargets     = "targets"
	ParamMode        = "mode"
	ParamUnits       = "units"
	ParamTolerance   = "tolerance"
)

// Params holds the parameters of an instance record, keyed by name.
// The type discriminator is not stored here; see Instance.Type.
type Params map[string]any

// Instance is a single device or sensor record.
//
// An empty Type is the Unconfigured state: the instance was added but no
// type has been chosen yet, so it carries no parameters.
type Instance struct {
	Type   string
	Params Params
}

// NewUnconfigured returns an instance awaiting a type selection.
func NewUnconfigured() *Instance {
	return &Instance{Params: Params{}}
}

// Configured reports whether a type has been selected.
func (i *Instance) Configured() bool {
	return i != nil && i.Type != ""
}

// Nickname returns the display name, or "" if unset.
func (i *Instance) Nickname() string {
	s, _ := i.Params[ParamNickname].(string) //nolint:errcheck // missing or non-string nickname reads as empty
	return s
}

// Units returns the temperature units of a thermostat-capable sensor.
func (i *Instance) Units() (string, bool) {
	s, ok := i.Params[ParamUnits].(string)
	return s, ok
}

// Targets returns a copy of the sensor's target list.
func (i *Instance) Targets() []string {
	return toStringSlice(i.Params[ParamTargets])
}

// HasTargets reports whether the record carries a targets field at all.
func (i *Instance) HasTargets() bool {
	_, ok := i.Params[ParamTargets]
	return ok
}

// SetTargets replaces the target list.
func (i *Instance) SetTargets(targets []string) {
	cpy := make([]string, len(targets))
	copy(cpy, targets)
	i.Params[ParamTargets] = cpy
}

// Schedule returns a copy of the schedule map, or nil if the record has none.
func (i *Instance) Schedule() map[string]any {
	switch s := i.Params[ParamSchedule].(type) {
	case map[string]any:
		return deepCopyMap(s)
	case map[string]string:
		out := make(map[string]any, len(s))
		for k, v := range s {
			out[k] = v
		}
		return out
	default:
		return nil
	}
}

// DeepCopy creates a complete independent copy of the Instance.
func (i *Instance) DeepCopy() *Instance {
	if i == nil {
		return nil
	}
	return &Instance{
		Type:   i.Type,
		Params: Params(deepCopyMap(i.Params)),
	}
}

// MarshalJSON encodes the instance as a flat record with a "_type" key.
// Unconfigured instances encode "_type" as null.
func (i *Instance) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Params)+1)
	for k, v := range i.Params {
		out[k] = v
	}
	if i.Type == "" {
		out[ParamType] = nil
	} else {
		out[ParamType] = i.Type
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flat record with a "_type" key.
func (i *Instance) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("%w: instance record must be an object", ErrInvalidConfig)
	}

	i.Type = ""
	if t, ok := raw[ParamType]; ok && t != nil {
		s, isString := t.(string)
		if !isString {
			return fmt.Errorf("%w: _type must be a string", ErrInvalidConfig)
		}
		i.Type = s
	}
	delete(raw, ParamType)

	if targets, ok := raw[ParamTargets]; ok {
		raw[ParamTargets] = toStringSlice(targets)
	}
	i.Params = Params(raw)
	return nil
}

// IRBlaster is the singular optional IR peripheral.
//
// Target entries are either instance IDs or remote names from the IR keymap.
type IRBlaster struct {
	Pin    string         `json:"pin"`
	Target []string       `json:"target"`
	Macros map[string]any `json:"macros"`
}

// DeepCopy creates a complete independent copy of the IRBlaster.
func (b *IRBlaster) DeepCopy() *IRBlaster {
	if b == nil {
		return nil
	}
	cpy := &IRBlaster{
		Pin:    b.Pin,
		Macros: deepCopyMap(b.Macros),
	}
	if b.Target != nil {
		cpy.Target = make([]string, len(b.Target))
		copy(cpy.Target, b.Target)
	}
	return cpy
}

// Config is the full configuration of one node.
//
// Instances is keyed by instance ID ("device1", "sensor3", ...). Within
// each category the IDs are always 1..N with no gaps.
type Config struct {
	Metadata  map[string]any
	Wifi      map[string]any
	IRBlaster *IRBlaster
	Instances map[string]*Instance
}

// NewConfig returns an empty config.
func NewConfig() *Config {
	return &Config{
		Metadata:  map[string]any{},
		Wifi:      map[string]any{},
		Instances: map[string]*Instance{},
	}
}

// DeepCopy creates a complete independent copy of the Config.
func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}
	cpy := &Config{
		Metadata:  deepCopyMap(c.Metadata),
		Wifi:      deepCopyMap(c.Wifi),
		IRBlaster: c.IRBlaster.DeepCopy(),
		Instances: make(map[string]*Instance, len(c.Instances)),
	}
	for id, inst := range c.Instances {
		cpy.Instances[id] = inst.DeepCopy()
	}
	return cpy
}

// Get returns the instance with the given ID.
func (c *Config) Get(id string) (*Instance, bool) {
	inst, ok := c.Instances[id]
	return inst, ok
}

// Count returns the number of instances in a category.
func (c *Config) Count(category Category) int {
	n := 0
	for id := range c.Instances {
		if CategoryOf(id) == category {
			n++
		}
	}
	return n
}

// IDs returns the instance IDs of a category in index order.
func (c *Config) IDs(category Category) []string {
	var ids []string
	for id := range c.Instances {
		if CategoryOf(id) == category {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool {
		return IndexOf(ids[a]) < IndexOf(ids[b])
	})
	return ids
}

// Validate checks the structural invariants of the config:
// gap-free IDs per category and no dangling target references.
func (c *Config) Validate() error {
	for id, inst := range c.Instances {
		if !IsInstanceID(id) {
			return fmt.Errorf("%w: bad instance id %q", ErrInvalidConfig, id)
		}
		if inst == nil {
			return fmt.Errorf("%w: %s has no record", ErrInvalidConfig, id)
		}
	}

	for _, category := range AllCategories() {
		count := c.Count(category)
		for i := 1; i <= count; i++ {
			if _, ok := c.Instances[MakeID(category, i)]; !ok {
				return fmt.Errorf("%w: %s ids have a gap at %d", ErrInvalidConfig, category, i)
			}
		}
	}

	for _, id := range c.IDs(CategorySensor) {
		for _, target := range c.Instances[id].Targets() {
			if CategoryOf(target) != CategoryDevice {
				return fmt.Errorf("%w: %s targets non-device %q", ErrInvalidConfig, id, target)
			}
			if _, ok := c.Instances[target]; !ok {
				return fmt.Errorf("%w: %s targets missing %s", ErrInvalidConfig, id, target)
			}
		}
	}

	if c.IRBlaster != nil {
		for _, target := range c.IRBlaster.Target {
			if !IsInstanceID(target) {
				continue
			}
			if _, ok := c.Instances[target]; !ok {
				return fmt.Errorf("%w: ir_blaster targets missing %s", ErrInvalidConfig, target)
			}
		}
	}
	return nil
}

// MarshalJSON encodes the config as one flat object:
// metadata, wifi, ir_blaster (if any), then every instance by ID.
func (c *Config) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Instances)+3)
	out["metadata"] = nonNilMap(c.Metadata)
	out["wifi"] = nonNilMap(c.Wifi)
	if c.IRBlaster != nil {
		out["ir_blaster"] = c.IRBlaster
	}
	for id, inst := range c.Instances {
		out[id] = inst
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the flat config object. Top-level keys other than
// metadata, wifi, ir_blaster and instance IDs are rejected.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed := NewConfig()
	for key, value := range raw {
		switch key {
		case "metadata":
			if err := json.Unmarshal(value, &parsed.Metadata); err != nil {
				return fmt.Errorf("decoding metadata: %w", err)
			}
		case "wifi":
			if err := json.Unmarshal(value, &parsed.Wifi); err != nil {
				return fmt.Errorf("decoding wifi: %w", err)
			}
		case "ir_blaster":
			if string(value) == "null" {
				continue
			}
			var ir IRBlaster
			if err := json.Unmarshal(value, &ir); err != nil {
				return fmt.Errorf("decoding ir_blaster: %w", err)
			}
			parsed.IRBlaster = &ir
		default:
			if !IsInstanceID(key) {
				return fmt.Errorf("%w: unexpected key %q", ErrInvalidConfig, key)
			}
			var inst Instance
			if err := json.Unmarshal(value, &inst); err != nil {
				return fmt.Errorf("decoding %s: %w", key, err)
			}
			parsed.Instances[key] = &inst
		}
	}

	*c = *parsed
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	if c.Wifi == nil {
		c.Wifi = map[string]any{}
	}
	return nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// toStringSlice converts a decoded JSON list into a string slice.
// Non-string entries are rendered with their default format.
func toStringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, elem := range val {
			switch e := elem.(type) {
			case string:
				out = append(out, e)
			case float64:
				out = append(out, strconv.FormatFloat(e, 'f', -1, 64))
			default:
				out = append(out, fmt.Sprint(e))
			}
		}
		return out
	default:
		return nil
	}
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return deepCopyMap(val)
	case Params:
		return deepCopyMap(val)
	case map[string]string:
		cpy := make(map[string]string, len(val))
		for k, s := range val {
			cpy[k] = s
		}
		return cpy
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	case []string:
		cpy := make([]string, len(val))
		copy(cpy, val)
		return cpy
	case []float64:
		cpy := make([]float64, len(val))
		copy(cpy, val)
		return cpy
	default:
		return v
	}
}
