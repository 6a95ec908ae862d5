package collector

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestHelperLocatorExplicitPath(t *testing.T) {
	path := buildFakeHelper(t)

	got, err := HelperLocator{Path: path}.Locate()
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if got != path {
		t.Errorf("expected %s, got %s", path, got)
	}
}

func TestHelperLocatorMissing(t *testing.T) {
	_, err := HelperLocator{Path: filepath.Join(t.TempDir(), "nope")}.Locate()
	if !errors.Is(err, ErrHelperNotFound) {
		t.Errorf("expected ErrHelperNotFound, got %v", err)
	}

	// The test binary's directory never contains the helper.
	_, err = HelperLocator{Name: "ondo-hwmon-test-missing"}.Locate()
	if !errors.Is(err, ErrHelperNotFound) {
		t.Errorf("expected ErrHelperNotFound, got %v", err)
	}
}
