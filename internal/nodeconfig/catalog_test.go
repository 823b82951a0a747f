package nodeconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}

	for _, name := range []string{"dimmer", "mosfet", "api-target"} {
		if _, err := catalog.Lookup(CategoryDevice, name); err != nil {
			t.Errorf("Lookup(device, %s) error = %v", name, err)
		}
	}
	for _, name := range []string{"pir", "si7021", "dht22"} {
		if _, err := catalog.Lookup(CategorySensor, name); err != nil {
			t.Errorf("Lookup(sensor, %s) error = %v", name, err)
		}
	}

	pir, _ := catalog.Lookup(CategorySensor, "pir")
	if !pir.Triggerable {
		t.Error("pir should be triggerable")
	}
	if keys, ok := catalog.IRKeys("tv"); !ok || len(keys) == 0 {
		t.Errorf("IRKeys(tv) = %v, %v", keys, ok)
	}
}

func TestCatalogLookupUnknownType(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}
	if _, err := catalog.Lookup(CategoryDevice, "pir"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("Lookup(device, pir) error = %v, want ErrUnknownType", err)
	}
}

func TestLoadCatalogHuJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.hujson")
	data := `{
		// comments and trailing commas are allowed
		"devices": {
			"relay": {
				"config_template": {"_type": "relay", "pin": null},
				"rule_prompt": "on_off",
			},
		},
		"sensors": {},
		"ir_keymap": {},
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if names := catalog.TypeNames(CategoryDevice); len(names) != 1 || names[0] != "relay" {
		t.Errorf("TypeNames(device) = %v", names)
	}
}

func TestParseCatalogValidation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"template type mismatch", `{"devices": {"a": {"config_template": {"_type": "b"}, "rule_prompt": "on_off"}}}`},
		{"unknown prompt", `{"devices": {"a": {"config_template": {"_type": "a"}, "rule_prompt": "slider"}}}`},
		{"ranged without limits", `{"sensors": {"a": {"config_template": {"_type": "a"}, "rule_prompt": "float_range"}}}`},
		{"unordered limits", `{"sensors": {"a": {"config_template": {"_type": "a"}, "rule_prompt": "int_or_fade", "rule_limits": [10, 1]}}}`},
		{"not json", `{"devices": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tt.data)); !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("ParseCatalog() error = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}
