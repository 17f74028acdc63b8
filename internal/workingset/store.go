// Package workingset persists the list of currently active task codes
// between agent turns. The gate itself never reads this store — the working
// set is always passed in explicitly — but the CLI needs a durable home for
// it.
package workingset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads the working set at path, preserving order and dropping
// duplicates. A missing file is an empty working set, not an error.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read working set: %w", err)
	}

	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, fmt.Errorf("parse working set %s: %w", path, err)
	}
	return dedupe(codes), nil
}

// Save writes the working set atomically: temp file in the same directory,
// then rename. A crashed writer never leaves a half-written set behind.
func Save(path string, codes []string) error {
	data, err := json.MarshalIndent(dedupe(codes), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal working set: %w", err)
	}
	data = append(data, '\n')
	return writeAtomic(path, data)
}

// Add appends codes to the set at path, keeping existing order.
func Add(path string, codes ...string) ([]string, error) {
	current, err := Load(path)
	if err != nil {
		return nil, err
	}
	updated := dedupe(append(current, codes...))
	if err := Save(path, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove deletes codes from the set at path. Codes not present are ignored.
func Remove(path string, codes ...string) ([]string, error) {
	current, err := Load(path)
	if err != nil {
		return nil, err
	}
	drop := make(map[string]bool, len(codes))
	for _, c := range codes {
		drop[c] = true
	}
	updated := []string{}
	for _, c := range current {
		if !drop[c] {
			updated = append(updated, c)
		}
	}
	if err := Save(path, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := []string{}
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// writeAtomic writes data to path via a temp file in the same directory and
// a rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	tmpName = "" // prevent deferred removal
	return nil
}
