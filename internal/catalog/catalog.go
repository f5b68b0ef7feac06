// Package catalog loads the food catalog from a YAML file and applies it to
// the store.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vbonduro/foodsurvey/internal/store"
)

// File is the on-disk catalog layout.
type File struct {
	Categories    []Category `yaml:"categories"`
	Uncategorized []Item     `yaml:"uncategorized"`
}

type Category struct {
	Name  string `yaml:"name"`
	Items []Item `yaml:"items"`
}

type Item struct {
	Name     string   `yaml:"name"`
	Quantity string   `yaml:"quantity"`
	Grams    *float64 `yaml:"grams"`
}

// Load reads and validates the catalog at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a catalog. Unknown keys are rejected so typos do not silently
// drop data.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	f := &File{}
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) validate() error {
	seenCategories := make(map[string]bool)
	seenItems := make(map[string]bool)

	checkItem := func(it Item) error {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return errors.New("catalog item without a name")
		}
		if seenItems[name] {
			return fmt.Errorf("catalog item %q listed twice", name)
		}
		if it.Grams != nil && *it.Grams < 0 {
			return fmt.Errorf("catalog item %q has negative grams", name)
		}
		seenItems[name] = true
		return nil
	}

	for _, c := range f.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return errors.New("catalog category without a name")
		}
		if seenCategories[name] {
			return fmt.Errorf("catalog category %q listed twice", name)
		}
		seenCategories[name] = true
		for _, it := range c.Items {
			if err := checkItem(it); err != nil {
				return err
			}
		}
	}
	for _, it := range f.Uncategorized {
		if err := checkItem(it); err != nil {
			return err
		}
	}
	return nil
}

// ItemCount is the number of items the file declares.
func (f *File) ItemCount() int {
	n := len(f.Uncategorized)
	for _, c := range f.Categories {
		n += len(c.Items)
	}
	return n
}

type transactor interface {
	InTx(ctx context.Context, fn func(r *store.Repos) error) error
}

// Seed upserts every category and item of f in one transaction. Running it
// again with the same file changes nothing.
func Seed(ctx context.Context, tx transactor, f *File) error {
	return tx.InTx(ctx, func(r *store.Repos) error {
		for _, c := range f.Categories {
			category, err := r.Catalog.UpsertCategory(ctx, strings.TrimSpace(c.Name))
			if err != nil {
				return err
			}
			for _, it := range c.Items {
				if err := upsertItem(ctx, r.Catalog, it, &category.ID); err != nil {
					return err
				}
			}
		}
		for _, it := range f.Uncategorized {
			if err := upsertItem(ctx, r.Catalog, it, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertItem(ctx context.Context, c *store.CatalogStore, it Item, categoryID *int64) error {
	_, err := c.UpsertItem(ctx, strings.TrimSpace(it.Name), strings.TrimSpace(it.Quantity), it.Grams, categoryID)
	return err
}
