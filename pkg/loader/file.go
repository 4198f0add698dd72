package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/model"
)

// ErrEmpty is returned for documents without any entry.
var ErrEmpty = errors.New("source has no entries")

// Format names a serialized tree format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor guesses the format from a file extension.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	}
	return "", false
}

// FromYAML loads a YAML tree document.
func FromYAML(path string) ([]model.Entry, error) {
	return fromFile(path, FormatYAML)
}

// FromJSON loads a JSON tree document.
func FromJSON(path string) ([]model.Entry, error) {
	return fromFile(path, FormatJSON)
}

func fromFile(path string, f Format) ([]model.Entry, error) {
	defer metrics.Timer(metrics.SourceLoad)()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	entries, err := Parse(data, f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes a tree document. The document is either a list of entries
// or a mapping with an "entries" list. Entries without an id get their
// slash separated name path.
func Parse(data []byte, f Format) ([]model.Entry, error) {
	var entries []model.Entry
	switch f {
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
		if len(node.Content) == 0 {
			return nil, ErrEmpty
		}
		doc := node.Content[0]
		if doc.Kind == yaml.MappingNode {
			var wrapped struct {
				Entries []model.Entry `yaml:"entries"`
			}
			if err := doc.Decode(&wrapped); err != nil {
				return nil, fmt.Errorf("parsing yaml: %w", err)
			}
			entries = wrapped.Entries
		} else if err := doc.Decode(&entries); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	case FormatJSON:
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "{") {
			var wrapped struct {
				Entries []model.Entry `json:"entries"`
			}
			if err := json.Unmarshal(data, &wrapped); err != nil {
				return nil, fmt.Errorf("parsing json: %w", err)
			}
			entries = wrapped.Entries
		} else if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}

	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	assignIDs(entries)
	if err := model.Validate(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// assignIDs fills empty IDs with the name path from the top level.
func assignIDs(entries []model.Entry) {
	type frame struct {
		list   []model.Entry
		prefix string
	}
	stack := []frame{{entries, ""}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := range f.list {
			e := &f.list[i]
			if e.ID == "" && e.Name != "" {
				e.ID = f.prefix + e.Name
			}
			if len(e.Children) > 0 {
				stack = append(stack, frame{e.Children, e.ID + "/"})
			}
		}
	}
}

// Marshal encodes entries in the given format.
func Marshal(entries []model.Entry, f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		return yaml.Marshal(entries)
	case FormatJSON:
		return json.MarshalIndent(entries, "", "  ")
	}
	return nil, fmt.Errorf("unknown format %q", f)
}
