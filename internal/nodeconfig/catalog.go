package nodeconfig

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tailscale/hujson"
)

//go:embed catalog.hujson
var defaultCatalogData []byte

// RulePrompt selects how a type's rule is entered and seeded.
type RulePrompt string

// Rule prompts understood by the mutation API.
const (
	RulePromptStandard   RulePrompt = "standard"
	RulePromptOnOff      RulePrompt = "on_off"
	RulePromptFloatRange RulePrompt = "float_range"
	RulePromptIntOrFade  RulePrompt = "int_or_fade"
	RulePromptAPITarget  RulePrompt = "api_target"
)

// Valid reports whether p is a known rule prompt.
func (p RulePrompt) Valid() bool {
	switch p {
	case RulePromptStandard, RulePromptOnOff, RulePromptFloatRange, RulePromptIntOrFade, RulePromptAPITarget:
		return true
	default:
		return false
	}
}

// Ranged reports whether the prompt takes a numeric rule bounded by limits.
func (p RulePrompt) Ranged() bool {
	return p == RulePromptFloatRange || p == RulePromptIntOrFade
}

// TypeMetadata describes one device or sensor type.
type TypeMetadata struct {
	ConfigTemplate map[string]any `json:"config_template"`
	RulePrompt     RulePrompt     `json:"rule_prompt"`
	RuleLimits     []float64      `json:"rule_limits,omitempty"`
	Triggerable    bool           `json:"triggerable,omitempty"`
}

// Catalog is the read-only metadata catalog of instance types.
type Catalog struct {
	Devices  map[string]TypeMetadata `json:"devices"`
	Sensors  map[string]TypeMetadata `json:"sensors"`
	IRKeymap map[string][]string     `json:"ir_keymap"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogData)
}

// LoadCatalog reads a catalog file. The file may use HuJSON
// (comments and trailing commas).
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog data.
func ParseCatalog(data []byte) (*Catalog, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: standardizing HuJSON: %w", ErrInvalidCatalog, err)
	}

	var c Catalog
	if err := json.Unmarshal(standardized, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every entry is usable by the mutation API.
func (c *Catalog) Validate() error {
	for _, category := range AllCategories() {
		for name, meta := range c.types(category) {
			if t, _ := meta.ConfigTemplate[ParamType].(string); t != name { //nolint:errcheck // mismatch reported below
				return fmt.Errorf("%w: %s type %q template declares _type %v", ErrInvalidCatalog, category, name, meta.ConfigTemplate[ParamType])
			}
			if !meta.RulePrompt.Valid() {
				return fmt.Errorf("%w: %s type %q has rule_prompt %q", ErrInvalidCatalog, category, name, meta.RulePrompt)
			}
			if meta.RulePrompt.Ranged() {
				if len(meta.RuleLimits) != 2 || meta.RuleLimits[0] > meta.RuleLimits[1] {
					return fmt.Errorf("%w: %s type %q needs two ordered rule_limits", ErrInvalidCatalog, category, name)
				}
			}
		}
	}
	return nil
}

// Lookup returns the metadata for a type within a category.
func (c *Catalog) Lookup(category Category, typeName string) (TypeMetadata, error) {
	meta, ok := c.types(category)[typeName]
	if !ok {
		return TypeMetadata{}, fmt.Errorf("%w: %s type %q", ErrUnknownType, category, typeName)
	}
	return meta, nil
}

// TypeNames returns the sorted type names of a category.
func (c *Catalog) TypeNames(category Category) []string {
	types := c.types(category)
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IRKeys returns the remote buttons known for an IR target.
func (c *Catalog) IRKeys(target string) ([]string, bool) {
	keys, ok := c.IRKeymap[target]
	return keys, ok
}

func (c *Catalog) types(category Category) map[string]TypeMetadata {
	switch category {
	case CategoryDevice:
		return c.Devices
	case CategorySensor:
		return c.Sensors
	default:
		return nil
	}
}

// newFromTemplate builds a fresh instance from the type's template.
func (m TypeMetadata) newFromTemplate() *Instance {
	params := deepCopyMap(m.ConfigTemplate)
	typeName, _ := params[ParamType].(string) //nolint:errcheck // validated when the catalog was loaded
	delete(params, ParamType)
	if targets, ok := params[ParamTargets]; ok {
		params[ParamTargets] = toStringSlice(targets)
	}
	return &Instance{Type: typeName, Params: Params(params)}
}
