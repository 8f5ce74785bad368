/*
factory.go - Catalog loading from TOML

PURPOSE:
  Operators can replace the demo catalog with their own file. The file uses
  arrays of tables:

    [[options]]
    id = "freeCoffee"
    title = "Free Coffee"
    points_cost = 300
    available = true

    [[promos]]
    id = "starbucks-bogo"
    brand = "Starbucks"
    category = "F&B"
    title = "Buy 1 Get 1 Free Latte"
    points_required = 500

VALIDATION:
  - ids are required and unique per list
  - costs must be positive
  - promo categories must be F&B or Fashion
*/
package rewards

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// LoadCatalog reads and validates a catalog file. An empty path returns
// the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	c, err := decodeCatalog(func(v any) (toml.MetaData, error) {
		return toml.DecodeFile(path, v)
	})
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes a catalog from TOML text.
func ParseCatalog(data string) (*Catalog, error) {
	return decodeCatalog(func(v any) (toml.MetaData, error) {
		return toml.Decode(data, v)
	})
}

// decodeCatalog rejects keys the catalog does not define, then validates.
func decodeCatalog(decode func(any) (toml.MetaData, error)) (*Catalog, error) {
	var c Catalog
	meta, err := decode(&c)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys %v", undecoded)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids, costs and categories.
func (c *Catalog) Validate() error {
	var errs []error

	seen := make(map[string]bool)
	for i, o := range c.Options {
		switch {
		case o.ID == "":
			errs = append(errs, fmt.Errorf("options[%d]: id is required", i))
		case seen[o.ID]:
			errs = append(errs, fmt.Errorf("options[%d]: duplicate id %q", i, o.ID))
		}
		seen[o.ID] = true
		if o.PointsCost <= 0 {
			errs = append(errs, fmt.Errorf("options[%d]: points_cost must be positive", i))
		}
	}

	seen = make(map[string]bool)
	for i, p := range c.Promos {
		switch {
		case p.ID == "":
			errs = append(errs, fmt.Errorf("promos[%d]: id is required", i))
		case seen[p.ID]:
			errs = append(errs, fmt.Errorf("promos[%d]: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
		if p.PointsRequired <= 0 {
			errs = append(errs, fmt.Errorf("promos[%d]: points_required must be positive", i))
		}
		if p.Category != CategoryFood && p.Category != CategoryFashion {
			errs = append(errs, fmt.Errorf("promos[%d]: %w: %q", i, ErrInvalidCategory, p.Category))
		}
	}

	return errors.Join(errs...)
}
