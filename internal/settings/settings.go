// Package settings keeps the small display preferences document shown by the
// browser client.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"todaytasks/api/internal/store"
)

const (
	DefaultTitle       = "TODAY'S TASKS"
	DefaultAccentColor = "#2563EB"
)

var ErrMalformed = errors.New("settings: malformed document")

type Settings struct {
	Title       string `json:"title"`
	AccentColor string `json:"accentColor"`
}

func Defaults() Settings {
	return Settings{Title: DefaultTitle, AccentColor: DefaultAccentColor}
}

type Store struct {
	docs store.Documents
}

func NewStore(docs store.Documents) *Store {
	return &Store{docs: docs}
}

// Load returns the saved settings, filling anything missing with defaults.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	raw, err := s.docs.Get(ctx, store.SettingsDocument)
	if errors.Is(err, store.ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	settings, err := merge(Defaults(), raw)
	if err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// Save merges a JSON object over the defaults, keeps the known keys and
// persists the result.
func (s *Store) Save(ctx context.Context, raw []byte) (Settings, error) {
	settings, err := merge(Defaults(), raw)
	if err != nil {
		return Settings{}, err
	}
	body, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		return Settings{}, fmt.Errorf("encode settings: %w", err)
	}
	if err := s.docs.Put(ctx, store.SettingsDocument, body); err != nil {
		return Settings{}, fmt.Errorf("write settings: %w", err)
	}
	return settings, nil
}

func merge(base Settings, raw []byte) (Settings, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Settings{}, fmt.Errorf("%w: expected a JSON object", ErrMalformed)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for key, target := range map[string]*string{"title": &base.Title, "accentColor": &base.AccentColor} {
		value, ok := fields[key]
		if !ok || string(value) == "null" {
			continue
		}
		if err := json.Unmarshal(value, target); err != nil {
			return Settings{}, fmt.Errorf("%w: %s must be a string", ErrMalformed, key)
		}
	}
	return base, nil
}
