package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/creachadair/atomicfile"
	"gopkg.in/yaml.v3"
)

// Prefs are the sticky CLI defaults stored under the user's home.
type Prefs struct {
	APIKey    string `yaml:"api_key,omitempty"`
	Language  string `yaml:"language,omitempty"`
	OutputDir string `yaml:"output_dir,omitempty"`
}

// PrefsPath returns the preferences file location under the user's home.
func PrefsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".capscan", "config.yaml"), nil
}

// LoadPrefs reads the preferences file at path. A missing file is not an
// error; it yields zero-value prefs.
func LoadPrefs(path string) (Prefs, error) {
	var p Prefs
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

// SavePrefs writes the preferences file atomically, creating its directory
// when needed. The file can hold an API key, so permissions stay tight.
func SavePrefs(path string, p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	f, err := atomicfile.New(path, 0o600)
	if err != nil {
		return err
	}
	defer f.Cancel()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Close()
}
