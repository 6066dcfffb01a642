// Package themes maps free text from a couple's conversation onto ranked
// relationship theme labels.
package themes

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

// Theme is one semantic label in the controlled vocabulary, with the keyword
// list used by the degraded extraction path.
type Theme struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Match pairs a theme label with the extraction confidence.
type Match struct {
	Theme      string  `json:"theme"`
	Confidence float64 `json:"confidence"`
}

type themesFile struct {
	Themes []Theme `json:"themes"`
}

//go:embed data/themes.json
var seedThemes []byte

func parseThemes(raw []byte) ([]Theme, error) {
	var file themesFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse themes: %w", err)
	}
	if len(file.Themes) == 0 {
		return nil, fmt.Errorf("theme vocabulary is empty")
	}
	seen := make(map[string]struct{}, len(file.Themes))
	for _, theme := range file.Themes {
		if theme.ID == "" {
			return nil, fmt.Errorf("theme with empty id")
		}
		if _, dup := seen[theme.ID]; dup {
			return nil, fmt.Errorf("duplicate theme id %q", theme.ID)
		}
		seen[theme.ID] = struct{}{}
	}
	return file.Themes, nil
}

// LoadSeedThemes returns the theme vocabulary compiled into the binary.
func LoadSeedThemes() ([]Theme, error) {
	return parseThemes(seedThemes)
}

// LoadThemesFile loads a theme vocabulary from disk, for deployments that
// override the built-in set.
func LoadThemesFile(path string) ([]Theme, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read themes %s: %w", path, err)
	}
	return parseThemes(raw)
}
