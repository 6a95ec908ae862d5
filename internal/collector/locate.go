package collector

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultHelperName is the sensor helper's base name, without platform suffix.
const DefaultHelperName = "ondo-hwmon"

// ErrHelperNotFound is returned when no helper binary exists in any candidate location.
var ErrHelperNotFound = errors.New("sensor helper not found")

// HelperLocator resolves the sensor helper binary. An explicit Path wins;
// otherwise Name is searched beside the running executable.
type HelperLocator struct {
	Path string
	Name string
}

// Locate returns the absolute path of the helper. It is re-evaluated on every
// call so a helper installed after startup is picked up.
func (l HelperLocator) Locate() (string, error) {
	if l.Path != "" {
		full, err := exec.LookPath(l.Path)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrHelperNotFound, l.Path, err)
		}
		return full, nil
	}

	name := l.Name
	if name == "" {
		name = DefaultHelperName
	}
	if executableSuffix != "" && !strings.HasSuffix(strings.ToLower(name), executableSuffix) {
		name += executableSuffix
	}

	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot resolve executable path: %w", err)
	}
	exeDir := filepath.Dir(exePath)

	candidates := []string{
		filepath.Join(exeDir, name),
		filepath.Join(exeDir, "utils", name),
	}
	for _, path := range candidates {
		if full, err := exec.LookPath(path); err == nil {
			return full, nil
		}
	}

	return "", fmt.Errorf("%w: %s not found beside %s", ErrHelperNotFound, name, exeDir)
}
