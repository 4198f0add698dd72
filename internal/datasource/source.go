// Package datasource detects what kind of tree source a path is and loads
// entries from it: a directory, a YAML or JSON document, or a SQLite
// database holding a nodes table.
package datasource

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/arbor/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	SourceTypeDir    SourceType = "dir"
	SourceTypeYAML   SourceType = "yaml"
	SourceTypeJSON   SourceType = "json"
	SourceTypeSQLite SourceType = "sqlite"
)

// Source is a detected tree source.
type Source struct {
	Type    SourceType `json:"type"`
	Path    string     `json:"path"`
	ModTime time.Time  `json:"mod_time"`
	Size    int64      `json:"size"`
}

// String returns a human-readable description of the source
func (s Source) String() string {
	return fmt.Sprintf("%s (%s, mod=%s)", s.Path, s.Type, s.ModTime.Format(time.RFC3339))
}

// Editable reports whether edits can be written back to the source.
func (s Source) Editable() bool {
	return s.Type == SourceTypeSQLite
}

var sqliteMagic = []byte("SQLite format 3\x00")

// Detect classifies path by stat, extension and, for unknown extensions,
// the SQLite file header.
func Detect(path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Source{}, fmt.Errorf("detecting source: %w", err)
	}
	src := Source{Path: abs, ModTime: info.ModTime(), Size: info.Size()}
	if info.IsDir() {
		src.Type = SourceTypeDir
		return src, nil
	}

	if f, ok := loader.FormatFor(abs); ok {
		if f == loader.FormatYAML {
			src.Type = SourceTypeYAML
		} else {
			src.Type = SourceTypeJSON
		}
		return src, nil
	}
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".db", ".sqlite", ".sqlite3":
		src.Type = SourceTypeSQLite
		return src, nil
	}

	ok, err := hasSQLiteHeader(abs)
	if err != nil {
		return Source{}, fmt.Errorf("detecting source: %w", err)
	}
	if ok {
		src.Type = SourceTypeSQLite
		return src, nil
	}
	return Source{}, fmt.Errorf("detecting source: unsupported file %s", abs)
}

func hasSQLiteHeader(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	buf := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(f, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(buf, sqliteMagic), nil
}
