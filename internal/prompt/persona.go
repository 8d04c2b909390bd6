package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var defaultPersonas []byte

// Persona is one lens a client can pick
type Persona struct {
	Key              string `yaml:"key"`
	Name             string `yaml:"name"`
	Instructions     string `yaml:"instructions"`
	UsesBirthDetails bool   `yaml:"usesBirthDetails"`
}

// Catalogue resolves lens keys to personas
type Catalogue struct {
	Default  string    `yaml:"default"`
	Personas []Persona `yaml:"personas"`

	byKey map[string]Persona
}

// LoadCatalogue parses a YAML catalogue. The default key must name one of
// its personas.
func LoadCatalogue(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse persona catalogue: %w", err)
	}

	c.byKey = make(map[string]Persona, len(c.Personas))
	for _, p := range c.Personas {
		key := strings.ToLower(strings.TrimSpace(p.Key))
		if key == "" {
			return nil, fmt.Errorf("persona %q has no key", p.Name)
		}
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate persona key %q", key)
		}
		p.Key = key
		p.Instructions = strings.TrimSpace(p.Instructions)
		c.byKey[key] = p
	}

	c.Default = strings.ToLower(strings.TrimSpace(c.Default))
	if _, ok := c.byKey[c.Default]; !ok {
		return nil, fmt.Errorf("default persona %q is not in the catalogue", c.Default)
	}
	return &c, nil
}

// DefaultCatalogue returns the embedded catalogue.
func DefaultCatalogue() *Catalogue {
	c, err := LoadCatalogue(defaultPersonas)
	if err != nil {
		panic(fmt.Sprintf("embedded persona catalogue is invalid: %v", err))
	}
	return c
}

// Lookup returns the persona for lens, or the default persona when the lens
// is empty or unknown.
func (c *Catalogue) Lookup(lens string) Persona {
	if p, ok := c.byKey[strings.ToLower(strings.TrimSpace(lens))]; ok {
		return p
	}
	return c.byKey[c.Default]
}

// Keys lists the persona keys in catalogue order.
func (c *Catalogue) Keys() []string {
	keys := make([]string, 0, len(c.Personas))
	for _, p := range c.Personas {
		keys = append(keys, strings.ToLower(strings.TrimSpace(p.Key)))
	}
	return keys
}
