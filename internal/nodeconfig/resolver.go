package nodeconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tailscale/hujson"
)

// Commands offered for every instance by the API target rule editor.
var universalOptions = []string{"enable", "disable", "enable_in", "disable_in", "set_rule", "reset_rule"}

// Extra commands offered for particular instances.
const (
	OptionTurnOn        = "turn_on"
	OptionTurnOff       = "turn_off"
	OptionTriggerSensor = "trigger_sensor"
)

// IRKeyInstance is the pseudo-instance ID under which IR remote commands are
// offered.
const IRKeyInstance = "ir_key"

// apiTargetType is the device type whose rule is a command aimed at other
// instances. It never offers turn_on/turn_off so commands cannot loop back
// into it.
const apiTargetType = "api-target"

// TargetOption lists the commands one instance accepts.
type TargetOption struct {
	Display string              `json:"display"`
	Options []string            `json:"options"`
	Keys    map[string][]string `json:"keys,omitempty"`
}

func (o TargetOption) deepCopy() TargetOption {
	cpy := TargetOption{
		Display: o.Display,
		Options: append([]string(nil), o.Options...),
	}
	if o.Keys != nil {
		cpy.Keys = make(map[string][]string, len(o.Keys))
		for k, v := range o.Keys {
			cpy.Keys[k] = append([]string(nil), v...)
		}
	}
	return cpy
}

// APITargetOptions holds the precomputed option tables of remote nodes.
//
// On the wire it is one flat object: an "addresses" map from friendly node
// name to address, plus one option table per friendly name.
type APITargetOptions struct {
	Addresses map[string]string
	Nodes     map[string]map[string]TargetOption
}

// NewAPITargetOptions returns an empty table.
func NewAPITargetOptions() *APITargetOptions {
	return &APITargetOptions{
		Addresses: map[string]string{},
		Nodes:     map[string]map[string]TargetOption{},
	}
}

// LoadAPITargetOptions reads a remote option table file. The file may use
// HuJSON (comments and trailing commas).
func LoadAPITargetOptions(path string) (*APITargetOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading api target options: %w", err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("standardizing api target options: %w", err)
	}

	opts := NewAPITargetOptions()
	if err := json.Unmarshal(standardized, opts); err != nil {
		return nil, fmt.Errorf("decoding api target options: %w", err)
	}
	return opts, nil
}

// Lookup returns a copy of the option table for the node at address.
func (o *APITargetOptions) Lookup(address string) (map[string]TargetOption, bool) {
	if o == nil {
		return nil, false
	}
	for name, addr := range o.Addresses {
		if addr != address {
			continue
		}
		table, ok := o.Nodes[name]
		if !ok {
			return nil, false
		}
		out := make(map[string]TargetOption, len(table))
		for id, opt := range table {
			out[id] = opt.deepCopy()
		}
		return out, true
	}
	return nil, false
}

// Set records the option table published by one remote node.
func (o *APITargetOptions) Set(name, address string, table map[string]TargetOption) {
	o.Addresses[name] = address
	o.Nodes[name] = table
}

// MarshalJSON encodes the flat wire form.
func (o *APITargetOptions) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(o.Nodes)+1)
	out["addresses"] = o.Addresses
	for name, table := range o.Nodes {
		out[name] = table
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the flat wire form.
func (o *APITargetOptions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed := NewAPITargetOptions()
	for key, value := range raw {
		if key == "addresses" {
			if err := json.Unmarshal(value, &parsed.Addresses); err != nil {
				return fmt.Errorf("decoding addresses: %w", err)
			}
			continue
		}
		var table map[string]TargetOption
		if err := json.Unmarshal(value, &table); err != nil {
			return fmt.Errorf("decoding options for %s: %w", key, err)
		}
		parsed.Nodes[key] = table
	}
	if parsed.Addresses == nil {
		parsed.Addresses = map[string]string{}
	}

	*o = *parsed
	return nil
}

// Resolver derives the commands an API target instance may send.
//
// For this node the options are computed from the config on every call and
// never cached. Other nodes are looked up in the remote option table.
type Resolver struct {
	catalog *Catalog
	self    map[string]struct{}

	mu     sync.RWMutex
	remote *APITargetOptions
}

// NewResolver creates a resolver. Loopback addresses always count as this
// node; selfAddresses adds the node's own network addresses.
func NewResolver(catalog *Catalog, selfAddresses ...string) *Resolver {
	self := map[string]struct{}{
		"127.0.0.1": {},
		"localhost": {},
		"::1":       {},
	}
	for _, addr := range selfAddresses {
		if addr != "" {
			self[addr] = struct{}{}
		}
	}
	return &Resolver{
		catalog: catalog,
		self:    self,
		remote:  NewAPITargetOptions(),
	}
}

// SetRemote replaces the remote option table.
func (r *Resolver) SetRemote(opts *APITargetOptions) {
	if opts == nil {
		opts = NewAPITargetOptions()
	}
	r.mu.Lock()
	r.remote = opts
	r.mu.Unlock()
}

// UpdateRemote records the option table of a single remote node.
func (r *Resolver) UpdateRemote(name, address string, table map[string]TargetOption) {
	r.mu.Lock()
	r.remote.Set(name, address, table)
	r.mu.Unlock()
}

// Remote returns a copy of the remote option table.
func (r *Resolver) Remote() *APITargetOptions {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cpy := NewAPITargetOptions()
	for name, addr := range r.remote.Addresses {
		cpy.Addresses[name] = addr
	}
	for name, table := range r.remote.Nodes {
		t := make(map[string]TargetOption, len(table))
		for id, opt := range table {
			t[id] = opt.deepCopy()
		}
		cpy.Nodes[name] = t
	}
	return cpy
}

// IsSelf reports whether address refers to this node.
func (r *Resolver) IsSelf(address string) bool {
	_, ok := r.self[address]
	return ok
}

// Resolve returns the option table for the node at address.
func (r *Resolver) Resolve(cfg *Config, address string) (map[string]TargetOption, error) {
	if r.IsSelf(address) {
		return r.selfOptions(cfg), nil
	}

	r.mu.RLock()
	table, ok := r.remote.Lookup(address)
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, address)
	}
	return table, nil
}

func (r *Resolver) selfOptions(cfg *Config) map[string]TargetOption {
	out := make(map[string]TargetOption, len(cfg.Instances)+1)

	for _, category := range AllCategories() {
		for _, id := range cfg.IDs(category) {
			inst := cfg.Instances[id]
			if !inst.Configured() {
				continue
			}

			options := append([]string(nil), universalOptions...)
			switch category {
			case CategoryDevice:
				if inst.Type != apiTargetType {
					options = append(options, OptionTurnOn, OptionTurnOff)
				}
			case CategorySensor:
				if meta, err := r.catalog.Lookup(category, inst.Type); err == nil && meta.Triggerable {
					options = append(options, OptionTriggerSensor)
				}
			}

			out[id] = TargetOption{
				Display: displayName(id, inst),
				Options: options,
			}
		}
	}

	if cfg.IRBlaster != nil && len(cfg.IRBlaster.Target) > 0 {
		targets := append([]string(nil), cfg.IRBlaster.Target...)
		keys := make(map[string][]string, len(targets))
		for _, target := range targets {
			if buttons, ok := r.catalog.IRKeys(target); ok {
				keys[target] = append([]string(nil), buttons...)
			}
		}
		out[IRKeyInstance] = TargetOption{
			Display: "IR Blaster",
			Options: targets,
			Keys:    keys,
		}
	}
	return out
}

// displayName renders "<nickname> (<type>)", falling back to the ID when
// the instance has no nickname.
func displayName(id string, inst *Instance) string {
	name := inst.Nickname()
	if name == "" {
		name = id
	}
	return fmt.Sprintf("%s (%s)", name, inst.Type)
}

// APITargetOptions resolves API target options against the latest snapshot.
func (s *Store) APITargetOptions(r *Resolver, address string) (map[string]TargetOption, error) {
	return r.Resolve(s.Snapshot(), address)
}
