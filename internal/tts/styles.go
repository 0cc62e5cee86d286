package tts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrStyleNotFound reports a voice name with no matching style file.
var ErrStyleNotFound = errors.New("voice style not found")

// Style is an opaque voice conditioning payload, loaded from a JSON file and
// passed through to the engine untouched. Shared read-only across all
// phrases of a request.
type Style struct {
	Name string
	Data json.RawMessage
}

// StyleDir resolves voice names against style files in a directory.
type StyleDir struct {
	dir string
}

func NewStyleDir(dir string) *StyleDir {
	return &StyleDir{dir: dir}
}

// Load reads and validates the style file for a voice name. A missing file
// yields ErrStyleNotFound; a malformed file yields a load error.
func (s *StyleDir) Load(name string) (Style, error) {
	path := filepath.Join(s.dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Style{}, fmt.Errorf("%w: %s", ErrStyleNotFound, name)
		}
		return Style{}, fmt.Errorf("read style %s: %w", name, err)
	}
	if !json.Valid(data) {
		return Style{}, fmt.Errorf("style %s: malformed JSON", name)
	}
	return Style{Name: name, Data: json.RawMessage(data)}, nil
}

// Exists reports whether a style file is present without loading it.
func (s *StyleDir) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, name+".json"))
	return err == nil
}

// List enumerates available voice names, sorted.
func (s *StyleDir) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list styles: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}
