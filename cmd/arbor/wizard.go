package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/arbor/internal/datasource"
	"github.com/vanderheijden86/arbor/pkg/config"
)

var errAborted = errors.New("no source chosen")

// chooseSource asks for a tree source: a recent one, or a path typed in.
func chooseSource(cfg config.Config) (string, error) {
	var path string
	var groups []*huh.Group

	if len(cfg.Recent) > 0 {
		options := make([]huh.Option[string], 0, len(cfg.Recent)+1)
		for _, s := range cfg.Recent {
			options = append(options, huh.NewOption(fmt.Sprintf("%s  %s", s.Name, s.Path), s.Path))
		}
		options = append(options, huh.NewOption("Other…", ""))
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Title("Open a recent source").
				Options(options...).
				Value(&path),
		))
	}

	groups = append(groups, huh.NewGroup(
		huh.NewInput().
			Title("Path").
			Description("A directory, or a YAML, JSON or SQLite tree file").
			Placeholder(".").
			Value(&path).
			Validate(validateSourcePath),
	).WithHideFunc(func() bool { return len(cfg.Recent) > 0 && path != "" }))

	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", errAborted
		}
		return "", fmt.Errorf("source picker: %w", err)
	}

	path = strings.TrimSpace(path)
	if path == "" {
		path = "."
	}
	return path, nil
}

func validateSourcePath(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "."
	}
	_, err := datasource.Detect(s)
	return err
}
