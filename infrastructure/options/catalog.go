package options

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Kind names one option list.
type Kind string

const (
	KindInspector Kind = "inspector"
	KindMerchant  Kind = "merchant"
	KindDesign    Kind = "design"
	KindAQL       Kind = "aql"
	KindSize      Kind = "size"
	KindCustomer  Kind = "customer"
	KindMaterial  Kind = "material"
	KindDefect    Kind = "defect"
	KindCompany   Kind = "company"
)

// WritableKinds are the lists stations may extend.
var WritableKinds = []Kind{KindInspector, KindMerchant, KindDesign, KindAQL, KindSize, KindCustomer}

var allKinds = append(append([]Kind{}, WritableKinds...), KindMaterial, KindDefect, KindCompany)

var ErrUnknownOptionKind = errors.New("unknown option kind")

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOptionKind, s)
}

// Writable reports whether stations may append to kind.
func (k Kind) Writable() bool {
	for _, w := range WritableKinds {
		if k == w {
			return true
		}
	}
	return false
}

// Option is one selectable value. Code is only set for customers and defects.
type Option struct {
	Value string `json:"value" yaml:"name"`
	Code  string `json:"code,omitempty" yaml:"code"`
}

// Company is an inspecting company and its report document number.
type Company struct {
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	DocumentNo string `yaml:"documentNo"`
}

// DefectCode is a catalogued defect with its default description.
type DefectCode struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
}

// Catalog is the static option data shipped with the service.
type Catalog struct {
	Companies   []Company    `yaml:"companies"`
	Inspectors  []string     `yaml:"inspectors"`
	Merchants   []string     `yaml:"merchants"`
	Designs     []string     `yaml:"designs"`
	AQLLevels   []string     `yaml:"aqlLevels"`
	Sizes       []string     `yaml:"sizes"`
	Materials   []string     `yaml:"materials"`
	Customers   []Option     `yaml:"customers"`
	DefectCodes []DefectCode `yaml:"defectCodes"`
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses catalog YAML and checks that every company has a document number.
func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse option catalog: %w", err)
	}
	if len(c.Companies) == 0 {
		return nil, fmt.Errorf("option catalog has no companies")
	}
	for _, co := range c.Companies {
		if co.Code == "" || co.DocumentNo == "" {
			return nil, fmt.Errorf("company %q is missing a code or document number", co.Name)
		}
	}
	return &c, nil
}

// Company looks up a company by code.
func (c *Catalog) Company(code string) (Company, bool) {
	for _, co := range c.Companies {
		if co.Code == code {
			return co, true
		}
	}
	return Company{}, false
}

// DefaultCompany is the first catalogued company.
func (c *Catalog) DefaultCompany() Company {
	return c.Companies[0]
}

// CompanyName returns the display name for code, or code itself when unknown.
func (c *Catalog) CompanyName(code string) string {
	if co, ok := c.Company(code); ok {
		return co.Name
	}
	return code
}

// DefectDescription returns the catalogued description for a defect code.
func (c *Catalog) DefectDescription(code string) (string, bool) {
	for _, d := range c.DefectCodes {
		if d.Code == code {
			return d.Description, true
		}
	}
	return "", false
}

// Static returns the shipped options of kind.
func (c *Catalog) Static(kind Kind) []Option {
	switch kind {
	case KindInspector:
		return values(c.Inspectors)
	case KindMerchant:
		return values(c.Merchants)
	case KindDesign:
		return values(c.Designs)
	case KindAQL:
		return values(c.AQLLevels)
	case KindSize:
		return values(c.Sizes)
	case KindMaterial:
		return values(c.Materials)
	case KindCustomer:
		return append([]Option(nil), c.Customers...)
	case KindDefect:
		out := make([]Option, 0, len(c.DefectCodes))
		for _, d := range c.DefectCodes {
			out = append(out, Option{Value: d.Description, Code: d.Code})
		}
		return out
	case KindCompany:
		out := make([]Option, 0, len(c.Companies))
		for _, co := range c.Companies {
			out = append(out, Option{Value: co.Name, Code: co.Code})
		}
		return out
	}
	return nil
}

func values(in []string) []Option {
	out := make([]Option, 0, len(in))
	for _, v := range in {
		out = append(out, Option{Value: v})
	}
	return out
}
