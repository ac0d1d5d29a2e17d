package prompt

import (
	"context"
	"strings"
)

// Template is a resolved prompt template. Version 0 means the hardcoded
// default was used.
type Template struct {
	Name    string
	Text    string
	Version int
}

// Store looks up the active version of a named template. found=false and a
// nil error means the store simply has no entry.
type Store interface {
	Lookup(ctx context.Context, name string) (tpl Template, found bool, err error)
}

// Resolve returns the stored template for name, or the fallback text with
// version 0 when the store is absent, empty, or failing. The error, if any,
// is returned for logging only; the Template is always usable.
func Resolve(ctx context.Context, store Store, name, fallback string) (Template, error) {
	def := Template{Name: name, Text: fallback, Version: 0}
	if store == nil {
		return def, nil
	}

	tpl, found, err := store.Lookup(ctx, name)
	if err != nil {
		return def, err
	}
	if !found || strings.TrimSpace(tpl.Text) == "" {
		return def, nil
	}
	if tpl.Name == "" {
		tpl.Name = name
	}
	return tpl, nil
}
