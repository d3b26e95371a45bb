package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"property-ingest/models"
)

//go:embed dictionary.yaml
var defaultDictionaryYAML []byte

// Dictionary holds the header aliases used for field-mapping detection and
// the value aliases used to coerce free text into the closed enums.
// It is plain data so callers and tests can swap in alternate tables.
type Dictionary struct {
	Headers       map[models.Field][]string      `yaml:"headers"`
	PropertyTypes map[string]models.PropertyType `yaml:"property_types"`
	Tenures       map[string]models.Tenure       `yaml:"tenures"`
	Statuses      map[string]models.Status       `yaml:"statuses"`
	Defaults      Defaults                       `yaml:"defaults"`
}

// Defaults are the enum values used when a raw value is missing or unmapped.
type Defaults struct {
	PropertyType models.PropertyType `yaml:"property_type"`
	Tenure       models.Tenure       `yaml:"tenure"`
	Status       models.Status       `yaml:"status"`
}

// DefaultDictionary returns the built-in dictionary.
func DefaultDictionary() (*Dictionary, error) {
	return ParseDictionary(defaultDictionaryYAML)
}

// MustDefaultDictionary is DefaultDictionary for callers that cannot recover.
func MustDefaultDictionary() *Dictionary {
	d, err := DefaultDictionary()
	if err != nil {
		panic(fmt.Sprintf("config: built-in dictionary: %v", err))
	}
	return d
}

// LoadDictionary returns the built-in dictionary, overlaid with the YAML file
// at path when path is non-empty. Entries in the file extend or replace the
// built-in ones; header alias lists replace the list for that field.
func LoadDictionary(path string) (*Dictionary, error) {
	base, err := DefaultDictionary()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	var override Dictionary
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary %s: %w", path, err)
	}

	for f, aliases := range override.Headers {
		base.Headers[f] = aliases
	}
	for k, v := range override.PropertyTypes {
		base.PropertyTypes[k] = v
	}
	for k, v := range override.Tenures {
		base.Tenures[k] = v
	}
	for k, v := range override.Statuses {
		base.Statuses[k] = v
	}
	if override.Defaults.PropertyType != "" {
		base.Defaults.PropertyType = override.Defaults.PropertyType
	}
	if override.Defaults.Tenure != "" {
		base.Defaults.Tenure = override.Defaults.Tenure
	}
	if override.Defaults.Status != "" {
		base.Defaults.Status = override.Defaults.Status
	}

	base.normalizeKeys()
	if err := base.validate(); err != nil {
		return nil, fmt.Errorf("invalid dictionary %s: %w", path, err)
	}
	return base, nil
}

// ParseDictionary decodes a complete dictionary document.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	d.setDefaults()
	d.normalizeKeys()
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Dictionary) setDefaults() {
	if d.Headers == nil {
		d.Headers = make(map[models.Field][]string)
	}
	if d.PropertyTypes == nil {
		d.PropertyTypes = make(map[string]models.PropertyType)
	}
	if d.Tenures == nil {
		d.Tenures = make(map[string]models.Tenure)
	}
	if d.Statuses == nil {
		d.Statuses = make(map[string]models.Status)
	}
	if d.Defaults.PropertyType == "" {
		d.Defaults.PropertyType = models.PropertyDetached
	}
	if d.Defaults.Tenure == "" {
		d.Defaults.Tenure = models.TenureFreehold
	}
	if d.Defaults.Status == "" {
		d.Defaults.Status = models.StatusForSale
	}
}

// normalizeKeys lower-cases and trims every alias so lookups can fold input the same way.
func (d *Dictionary) normalizeKeys() {
	for f, aliases := range d.Headers {
		out := make([]string, 0, len(aliases))
		for _, a := range aliases {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				out = append(out, a)
			}
		}
		d.Headers[f] = out
	}
	d.PropertyTypes = lowerKeys(d.PropertyTypes)
	d.Tenures = lowerKeys(d.Tenures)
	d.Statuses = lowerKeys(d.Statuses)
}

func lowerKeys[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func (d *Dictionary) validate() error {
	known := make(map[models.Field]bool, len(models.Fields))
	for _, f := range models.Fields {
		known[f] = true
	}
	for f := range d.Headers {
		if !known[f] {
			return fmt.Errorf("unknown canonical field %q in headers", f)
		}
	}
	for alias, v := range d.PropertyTypes {
		if !v.Valid() {
			return fmt.Errorf("property type alias %q targets unknown type %q", alias, v)
		}
	}
	for alias, v := range d.Tenures {
		if !v.Valid() {
			return fmt.Errorf("tenure alias %q targets unknown tenure %q", alias, v)
		}
	}
	for alias, v := range d.Statuses {
		if !v.Valid() {
			return fmt.Errorf("status alias %q targets unknown status %q", alias, v)
		}
	}
	if !d.Defaults.PropertyType.Valid() {
		return fmt.Errorf("default property type %q is not a valid type", d.Defaults.PropertyType)
	}
	if !d.Defaults.Tenure.Valid() {
		return fmt.Errorf("default tenure %q is not a valid tenure", d.Defaults.Tenure)
	}
	if !d.Defaults.Status.Valid() {
		return fmt.Errorf("default status %q is not a valid status", d.Defaults.Status)
	}
	return nil
}
