package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/clt-events/internal/adapter"
)

//go:embed sources.schema.json
var sourcesSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// SourceList is the document stored in the sources file
type SourceList struct {
	Sources []adapter.Source `json:"sources" yaml:"sources"`
}

// LoadSources reads, validates and sorts the source list at path.
// Files ending in .yaml or .yml are read as YAML, anything else as JSON.
func LoadSources(path string) ([]adapter.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources: %w", err)
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	default:
		format = "json"
	}

	sources, err := ParseSources(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sources, nil
}

// ParseSources decodes a source list in the given format ("json" or "yaml"),
// validates it against the schema and returns it sorted by ascending priority.
// Sources with equal priority keep their file order. A missing enabled flag
// means enabled.
func ParseSources(data []byte, format string) ([]adapter.Source, error) {
	var value interface{}
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("decoding JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported sources format %q", format)
	}

	// Round trip through JSON so the validator sees JSON types only
	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalizing sources: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(normalized))
	decoder.UseNumber()
	var doc interface{}
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("normalizing sources: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	defaultEnabled(doc)

	normalized, err = json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalizing sources: %w", err)
	}
	var list SourceList
	if err := json.Unmarshal(normalized, &list); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}

	sort.SliceStable(list.Sources, func(i, j int) bool {
		return list.Sources[i].Priority < list.Sources[j].Priority
	})

	if list.Sources == nil {
		list.Sources = []adapter.Source{}
	}
	return list.Sources, nil
}

func defaultEnabled(doc interface{}) {
	root, ok := doc.(map[string]interface{})
	if !ok {
		return
	}
	items, _ := root["sources"].([]interface{})
	for _, item := range items {
		if src, ok := item.(map[string]interface{}); ok {
			if _, set := src["enabled"]; !set {
				src["enabled"] = true
			}
		}
	}
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("sources.schema.json", strings.NewReader(sourcesSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("sources.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}
