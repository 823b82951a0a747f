package nodeconfig

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveSelfOptions(t *testing.T) {
	s := newTestStore(t)
	api := addConfigured(t, s, CategoryDevice, "api-target")
	dimmer := addConfigured(t, s, CategoryDevice, "dimmer")
	pir := addConfigured(t, s, CategorySensor, "pir")
	sw := addConfigured(t, s, CategorySensor, "switch")
	mustChange(t, s, dimmer, ParamNickname, "Lamp")
	if _, err := s.AddInstance(CategoryDevice); err != nil {
		t.Fatalf("AddInstance() error = %v", err)
	}

	r := NewResolver(s.Catalog())
	table, err := s.APITargetOptions(r, "127.0.0.1")
	if err != nil {
		t.Fatalf("APITargetOptions() error = %v", err)
	}

	if has(table[api].Options, OptionTurnOn) || has(table[api].Options, OptionTurnOff) {
		t.Errorf("api-target options = %v, must not include turn_on/turn_off", table[api].Options)
	}
	if !has(table[dimmer].Options, OptionTurnOn) || !has(table[dimmer].Options, OptionTurnOff) {
		t.Errorf("dimmer options = %v, want turn_on and turn_off", table[dimmer].Options)
	}
	for _, id := range []string{api, dimmer, pir, sw} {
		for _, opt := range universalOptions {
			if !has(table[id].Options, opt) {
				t.Errorf("%s options missing %s", id, opt)
			}
		}
	}
	if !has(table[pir].Options, OptionTriggerSensor) {
		t.Errorf("pir options = %v, want trigger_sensor", table[pir].Options)
	}
	if has(table[sw].Options, OptionTriggerSensor) {
		t.Errorf("switch options = %v, must not include trigger_sensor", table[sw].Options)
	}
	if table[dimmer].Display != "Lamp (dimmer)" {
		t.Errorf("display = %q, want %q", table[dimmer].Display, "Lamp (dimmer)")
	}
	if _, ok := table["device3"]; ok {
		t.Error("unconfigured device3 should not be offered")
	}
	if _, ok := table[IRKeyInstance]; ok {
		t.Error("ir_key offered without an IR blaster")
	}
}

func TestResolveSelfIRKey(t *testing.T) {
	s := newTestStore(t)
	addConfigured(t, s, CategoryDevice, "mosfet")
	if err := s.SetIRBlaster(&IRBlaster{Pin: "4"}); err != nil {
		t.Fatalf("SetIRBlaster() error = %v", err)
	}

	r := NewResolver(s.Catalog(), "192.168.1.20")
	table, err := s.APITargetOptions(r, "192.168.1.20")
	if err != nil {
		t.Fatalf("APITargetOptions() error = %v", err)
	}
	if _, ok := table[IRKeyInstance]; ok {
		t.Error("ir_key offered for a blaster with no targets")
	}

	if err := s.HandleIRTargetSelect("tv", true); err != nil {
		t.Fatalf("HandleIRTargetSelect() error = %v", err)
	}
	table, err = s.APITargetOptions(r, "localhost")
	if err != nil {
		t.Fatalf("APITargetOptions() error = %v", err)
	}

	ir, ok := table[IRKeyInstance]
	if !ok {
		t.Fatal("ir_key missing")
	}
	if !reflect.DeepEqual(ir.Options, []string{"tv"}) {
		t.Errorf("ir_key options = %v, want [tv]", ir.Options)
	}
	want, _ := s.Catalog().IRKeys("tv")
	if !reflect.DeepEqual(ir.Keys["tv"], want) {
		t.Errorf("ir_key keys = %v, want %v", ir.Keys["tv"], want)
	}
}

func TestResolveRemote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_target_options.json")
	data := `{
		// written by the kitchen node
		"addresses": {"Kitchen": "192.168.1.30"},
		"Kitchen": {
			"device1": {"display": "Lights (dimmer)", "options": ["enable", "turn_on"]},
			"ir_key": {"display": "IR Blaster", "options": ["ac"], "keys": {"ac": ["start", "stop"]}},
		},
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("writing options: %v", err)
	}
	opts, err := LoadAPITargetOptions(path)
	if err != nil {
		t.Fatalf("LoadAPITargetOptions() error = %v", err)
	}

	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}
	r := NewResolver(catalog)
	r.SetRemote(opts)

	table, err := r.Resolve(NewConfig(), "192.168.1.30")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if table["device1"].Display != "Lights (dimmer)" {
		t.Errorf("device1 = %+v", table["device1"])
	}
	if !reflect.DeepEqual(table["ir_key"].Keys["ac"], []string{"start", "stop"}) {
		t.Errorf("ir_key = %+v", table["ir_key"])
	}

	table["device1"].Options[0] = "mutated"
	again, _ := r.Resolve(NewConfig(), "192.168.1.30")
	if again["device1"].Options[0] != "enable" {
		t.Error("Resolve returned an aliased remote table")
	}
}

func TestResolveUnknownTarget(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}
	r := NewResolver(catalog)
	r.UpdateRemote("Kitchen", "192.168.1.30", map[string]TargetOption{})

	if _, err := r.Resolve(NewConfig(), "10.0.0.9"); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("Resolve() error = %v, want ErrUnknownTarget", err)
	}
	if _, err := r.Resolve(NewConfig(), "192.168.1.30"); err != nil {
		t.Errorf("Resolve(known remote) error = %v", err)
	}
	if remote := r.Remote(); remote.Addresses["Kitchen"] != "192.168.1.30" {
		t.Errorf("Remote() = %+v", remote)
	}
}

func has(list []string, s string) bool {
	return containsString(list, s)
}
