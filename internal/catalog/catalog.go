// Package catalog loads the shop catalog and reward templates that ship
// embedded in the binary.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed shop.yaml
var shopYAML []byte

//go:embed templates.yaml
var templatesYAML []byte

// Item kinds
const (
	KindIdentityBadge = "identity_badge"
	KindAvatar        = "avatar"
	KindWorld         = "world"
	KindTreat         = "treat"
)

// Item is something kids can buy in the shop
type Item struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Emoji       string `yaml:"emoji" json:"emoji"`
	Kind        string `yaml:"kind" json:"kind"`
	Cost        int    `yaml:"cost" json:"cost"`
	Repeatable  bool   `yaml:"repeatable" json:"repeatable"`
	Description string `yaml:"description" json:"description"`
}

// Shop is an immutable, indexed item list
type Shop struct {
	items []Item
	byID  map[string]Item
}

// Template is a suggested reward
type Template struct {
	Name          string `yaml:"name" json:"name"`
	Emoji         string `yaml:"emoji" json:"emoji"`
	SuggestedCost int    `yaml:"suggested_cost" json:"suggestedCost"`
}

// TemplateCategory groups templates under a reward category
type TemplateCategory struct {
	ID      string     `yaml:"id" json:"id"`
	Name    string     `yaml:"name" json:"name"`
	Emoji   string     `yaml:"emoji" json:"emoji"`
	Rewards []Template `yaml:"rewards" json:"rewards"`
}

// LoadShop parses the embedded shop catalog
func LoadShop() (*Shop, error) {
	return ParseShop(shopYAML)
}

// ParseShop parses and validates a shop catalog document
func ParseShop(data []byte) (*Shop, error) {
	var doc struct {
		Items []Item `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse shop catalog: %w", err)
	}

	shop := &Shop{byID: make(map[string]Item, len(doc.Items))}
	for _, item := range doc.Items {
		if item.ID == "" || item.Name == "" {
			return nil, fmt.Errorf("shop item missing id or name: %+v", item)
		}
		if item.Cost < 1 {
			return nil, fmt.Errorf("shop item %s: cost must be positive", item.ID)
		}
		if _, dup := shop.byID[item.ID]; dup {
			return nil, fmt.Errorf("duplicate shop item %s", item.ID)
		}
		shop.byID[item.ID] = item
		shop.items = append(shop.items, item)
	}
	return shop, nil
}

// Items returns every item in catalog order
func (s *Shop) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Item looks up an item by id
func (s *Shop) Item(id string) (Item, bool) {
	item, ok := s.byID[id]
	return item, ok
}

// LoadTemplates parses the embedded reward templates
func LoadTemplates() ([]TemplateCategory, error) {
	var doc struct {
		Categories []TemplateCategory `yaml:"categories"`
	}
	if err := yaml.Unmarshal(templatesYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse reward templates: %w", err)
	}
	return doc.Categories, nil
}
