package schema

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := validSchema()

	for _, ext := range []string{".yaml", ".json", ".toml"} {
		path := filepath.Join(dir, "schema"+ext)
		if err := Save(path, original); err != nil {
			t.Fatalf("%s: save: %v", ext, err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("%s: load: %v", ext, err)
		}
		if !reflect.DeepEqual(loaded, original) {
			t.Errorf("%s: round trip changed the document:\n got %+v\nwant %+v", ext, loaded, original)
		}
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "schema.ini"))
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSave_UnsupportedExtension(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "schema.xml"), validSchema())
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
