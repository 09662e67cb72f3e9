package config

import (
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	c := DefaultPoolConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := PoolConfig{NumWorkers: 0}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero num_workers")
	}
}

func TestSaveAndLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")

	want := PoolConfig{NumWorkers: 8, LongLived: false, UseCallWrapper: true}
	if err := SaveYAML(path, &want); err != nil {
		t.Fatalf("SaveYAML: %v", err)
	}

	var got PoolConfig
	if err := LoadYAML(path, &got); err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}

	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestLoadYAMLMissingFile(t *testing.T) {
	var c PoolConfig
	if err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"), &c); err == nil {
		t.Fatal("expected error for missing file")
	}
}
