package workingset

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoad_MissingFileIsEmptySet(t *testing.T) {
	codes, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 0 {
		t.Errorf("got %v, want empty", codes)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active.json")
	want := []string{"T001", "T002", "T003"}

	if err := Save(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSave_DedupesAndDropsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active.json")
	if err := Save(path, []string{"T001", "", "T001", "T002"}); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"T001", "T002"}) {
		t.Errorf("got %v", got)
	}
}

func TestSave_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "active.json")
	if err := Save(path, []string{"T001"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file should exist: %v", err)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Save(filepath.Join(dir, "active.json"), []string{"T001"}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestAdd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active.json")

	got, err := Add(path, "T001", "T002")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"T001", "T002"}) {
		t.Fatalf("got %v", got)
	}

	got, err = Add(path, "T002", "T003")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"T001", "T002", "T003"}) {
		t.Errorf("re-adding must keep first position: got %v", got)
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active.json")
	if err := Save(path, []string{"T001", "T002", "T003"}); err != nil {
		t.Fatal(err)
	}

	got, err := Remove(path, "T002", "T999")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"T001", "T003"}) {
		t.Errorf("got %v", got)
	}

	got, err = Remove(path, "T001", "T003")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for corrupt file")
	}
}
