// Package config loads connector definitions from YAML. The core library
// never reads the process environment; this loader takes bytes or a path
// supplied by the host and returns plain structs for the facade to build
// connectors from.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/lodestar-gis/lodestar/internal/connectors/dataspace"
	"github.com/lodestar-gis/lodestar/pkg/errors"
)

// Kind names a connector implementation.
type Kind string

const (
	// KindFlatFile is the CSV index plus GeoJSON footprints shape.
	KindFlatFile Kind = "flatfile"
	// KindSTACCatalog is the static STAC hierarchy shape.
	KindSTACCatalog Kind = "stac"
	// KindOAuth2API is the OAuth2-protected STAC search API shape.
	KindOAuth2API Kind = "oauth2"
)

// ConnectorDef is one connector entry of a definitions file.
type ConnectorDef struct {
	ID   string `yaml:"id"`
	Kind Kind   `yaml:"kind"`
	Name string `yaml:"name"`

	// BaseURL is the archive root for flatfile connectors.
	BaseURL string `yaml:"base_url,omitempty"`

	// CatalogURL is the root catalog document for stac connectors.
	CatalogURL string `yaml:"catalog_url,omitempty"`

	// TokenURL and APIURL configure oauth2 connectors.
	TokenURL string `yaml:"token_url,omitempty"`
	APIURL   string `yaml:"api_url,omitempty"`

	// Collections statically declares an oauth2 source's collections.
	Collections []dataspace.CollectionDef `yaml:"collections,omitempty"`

	// DefaultCollection is searched when a query names none (oauth2 only).
	DefaultCollection string `yaml:"default_collection,omitempty"`
}

// File is the root of a connector definitions document.
type File struct {
	Connectors []ConnectorDef `yaml:"connectors"`
}

// Load parses a definitions document.
func Load(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and parses a definitions file from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading connector definitions: %w", err)
	}
	return Load(data)
}

func (f *File) validate() error {
	seen := make(map[string]bool, len(f.Connectors))
	for i, def := range f.Connectors {
		if def.ID == "" {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("connectors[%d].id", i),
				Message: "connector id is required",
			}
		}
		if seen[def.ID] {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("connectors[%d].id", i),
				Value:   def.ID,
				Message: "duplicate connector id",
			}
		}
		seen[def.ID] = true

		switch def.Kind {
		case KindFlatFile:
			if def.BaseURL == "" {
				return missingField(def.ID, "base_url")
			}
		case KindSTACCatalog:
			if def.CatalogURL == "" {
				return missingField(def.ID, "catalog_url")
			}
		case KindOAuth2API:
			if def.TokenURL == "" {
				return missingField(def.ID, "token_url")
			}
			if def.APIURL == "" {
				return missingField(def.ID, "api_url")
			}
		default:
			return &errors.ValidationError{
				Field:   "kind",
				Value:   string(def.Kind),
				Message: fmt.Sprintf("unknown connector kind for %q", def.ID),
			}
		}
	}
	return nil
}

func missingField(id, field string) error {
	return &errors.ValidationError{
		Field:   field,
		Message: fmt.Sprintf("required for connector %q", id),
	}
}
