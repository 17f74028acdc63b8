package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads a schema document from path. The encoding is chosen by file
// extension: .yaml/.yml (the primary interchange format), .json, or .toml.
// Loading performs no validation; callers go through Compile before use.
func Load(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema file: %w", err)
	}

	var s Schema
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Schema{}, fmt.Errorf("parse schema YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return Schema{}, fmt.Errorf("parse schema JSON: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &s); err != nil {
			return Schema{}, fmt.Errorf("parse schema TOML: %w", err)
		}
	default:
		return Schema{}, fmt.Errorf("unsupported schema file extension %q (want .yaml, .yml, .json or .toml)", ext)
	}
	return s, nil
}

// Save writes a schema document to path, encoding by file extension as in
// Load. Output round-trips through Load unchanged.
func Save(path string, s Schema) error {
	var data []byte
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	case ".json":
		data, err = json.MarshalIndent(s, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case ".toml":
		var buf strings.Builder
		err = toml.NewEncoder(&buf).Encode(s)
		data = []byte(buf.String())
	default:
		return fmt.Errorf("unsupported schema file extension %q (want .yaml, .yml, .json or .toml)", ext)
	}
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}
	return nil
}
