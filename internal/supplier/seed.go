package supplier

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/oilprice-ni/internal/postcode"
	"github.com/noah-isme/oilprice-ni/internal/pricing"
)

// SeedFile is the YAML document read by the seeder and the pricecalc CLI.
//
//	suppliers:
//	  - name: Lough Neagh Fuels
//	    slug: lough-neagh-fuels
//	    areas: [BT41, BT42]
//	    base_price: "£290.00"
//	    base_volume: 500
type SeedFile struct {
	Suppliers []SeedEntry `yaml:"suppliers"`
}

// SeedEntry is one supplier row in a seed file.
type SeedEntry struct {
	Name       string    `yaml:"name"`
	Slug       string    `yaml:"slug"`
	Phone      string    `yaml:"phone"`
	Website    string    `yaml:"website"`
	Areas      []string  `yaml:"areas"`
	BasePrice  seedPrice `yaml:"base_price"`
	BaseVolume float64   `yaml:"base_volume"`
}

// seedPrice accepts plain numbers and display strings such as "£1,250.00".
type seedPrice float64

func (p *seedPrice) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: base_price must be a scalar", node.Line)
	}
	v, err := pricing.ParsePrice(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*p = seedPrice(v)
	return nil
}

// LoadSeed decodes and validates a seed document.
func LoadSeed(r io.Reader) ([]Supplier, error) {
	var doc SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("seed file is empty")
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	out := make([]Supplier, 0, len(doc.Suppliers))
	seen := make(map[string]struct{}, len(doc.Suppliers))
	var errs []error
	for i, e := range doc.Suppliers {
		s, err := e.toSupplier()
		if err != nil {
			errs = append(errs, fmt.Errorf("supplier %d (%s): %w", i+1, e.Slug, err))
			continue
		}
		if _, dup := seen[s.Slug]; dup {
			errs = append(errs, fmt.Errorf("supplier %d: duplicate slug %q", i+1, s.Slug))
			continue
		}
		seen[s.Slug] = struct{}{}
		out = append(out, s)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (e SeedEntry) toSupplier() (Supplier, error) {
	s := Supplier{
		Name:       strings.TrimSpace(e.Name),
		Slug:       strings.ToLower(strings.TrimSpace(e.Slug)),
		Phone:      strings.TrimSpace(e.Phone),
		Website:    strings.TrimSpace(e.Website),
		BasePrice:  float64(e.BasePrice),
		BaseVolume: e.BaseVolume,
	}
	if s.Name == "" || s.Slug == "" {
		return Supplier{}, errors.New("name and slug are required")
	}
	if len(e.Areas) == 0 {
		return Supplier{}, errors.New("at least one area is required")
	}
	for _, area := range e.Areas {
		pc, err := postcode.Parse(area)
		if err != nil {
			return Supplier{}, fmt.Errorf("area %q: %w", area, err)
		}
		if pc.Inward != "" {
			return Supplier{}, fmt.Errorf("area %q: use the outward code only", area)
		}
		s.Areas = append(s.Areas, pc.Outward)
	}
	// The engine reprices from these, so reject references it would refuse.
	if !positiveFinite(s.BasePrice) || !positiveFinite(s.BaseVolume) {
		return Supplier{}, fmt.Errorf("base_price and base_volume must be positive finite numbers, got %v / %v", s.BasePrice, s.BaseVolume)
	}
	return s, nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
