// Package catalog holds the immutable set of secret cards a round can deal.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var defaultCards []byte

// Card is one entry of the catalog. Metadata is informational only.
type Card struct {
	Name       string `yaml:"name" json:"name"`
	ImageURL   string `yaml:"image_url,omitempty" json:"image_url,omitempty"`
	ElixirCost *int   `yaml:"elixir_cost,omitempty" json:"elixir_cost,omitempty"`
}

// Catalog is safe for concurrent reads; it is never modified after loading.
type Catalog struct {
	names  []string
	byName map[string]Card
}

// Parse reads a YAML (or JSON) list of cards. Names must be unique and non-blank.
func Parse(data []byte) (*Catalog, error) {
	var cards []Card
	if err := yaml.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("failed to parse card catalog: %w", err)
	}
	return New(cards)
}

// New builds a catalog from cards, preserving their order.
func New(cards []Card) (*Catalog, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("card catalog is empty")
	}
	c := &Catalog{
		names:  make([]string, 0, len(cards)),
		byName: make(map[string]Card, len(cards)),
	}
	for i, card := range cards {
		card.Name = strings.TrimSpace(card.Name)
		if card.Name == "" {
			return nil, fmt.Errorf("card #%d has no name", i+1)
		}
		if _, dup := c.byName[card.Name]; dup {
			return nil, fmt.Errorf("duplicate card %q", card.Name)
		}
		c.names = append(c.names, card.Name)
		c.byName[card.Name] = card
	}
	return c, nil
}

// Default returns the embedded card set.
func Default() (*Catalog, error) {
	return Parse(defaultCards)
}

// Load reads the catalog at path, or the embedded set when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card catalog: %w", err)
	}
	return Parse(data)
}

// Names returns the card names in catalog order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

func (c *Catalog) Len() int { return len(c.names) }

// ImageURL returns the artwork link of a card, if one is known.
func (c *Catalog) ImageURL(name string) (string, bool) {
	card, ok := c.byName[name]
	if !ok || card.ImageURL == "" {
		return "", false
	}
	return card.ImageURL, true
}

// ElixirCost returns the elixir cost of a card, if one is known.
func (c *Catalog) ElixirCost(name string) (int, bool) {
	card, ok := c.byName[name]
	if !ok || card.ElixirCost == nil {
		return 0, false
	}
	return *card.ElixirCost, true
}
