package bump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/mahesh-hegde/vizext/app/draw"
	"github.com/mahesh-hegde/vizext/app/host"
)

// Persisted setting keys.
const (
	KeyBgColor  = "bgColor"
	KeyMaxLines = "maxLines"
	KeyColors   = "colors"
)

type Settings struct {
	BgColor  string   `json:"bgColor"`
	MaxLines int      `json:"maxLines"`
	Colors   []string `json:"colors"`
}

func DefaultSettings() Settings {
	return Settings{
		BgColor:  "#0f172a",
		MaxLines: 6,
		Colors: []string{
			"#4e79a7", "#f28e2b", "#e15759", "#76b7b2",
			"#59a14f", "#edc948", "#b07aa1", "#ff9da7",
			"#9c755f", "#bab0ac", "#e76f51", "#2a9d8f",
		},
	}
}

func (s Settings) Theme() draw.Theme {
	return draw.ThemeFor(s.BgColor)
}

func (s Settings) Equal(o Settings) bool {
	return s.BgColor == o.BgColor && s.MaxLines == o.MaxLines && slices.Equal(s.Colors, o.Colors)
}

// Validate reports the first field that would not survive a round trip
// through the store.
func (s Settings) Validate() error {
	if !draw.IsHexColor(s.BgColor) {
		return fmt.Errorf("bgColor %q is not a #rrggbb colour", s.BgColor)
	}
	if s.MaxLines < 1 {
		return fmt.Errorf("maxLines must be at least 1, got %d", s.MaxLines)
	}
	if _, err := decodeColors(mustJSON(s.Colors)); err != nil {
		return err
	}
	return nil
}

// Load reads the persisted settings. Each key falls back to its default on
// its own when absent or invalid. The colour list is taken whole or not at
// all.
func Load(ctx context.Context, store host.SettingsStore) Settings {
	s := DefaultSettings()
	if store == nil {
		return s
	}
	get := func(key string) string {
		v, found, err := store.Get(ctx, key)
		if err != nil {
			slog.Warn("could not read setting, using default", "key", key, "err", err)
			return ""
		}
		if !found {
			return ""
		}
		return strings.TrimSpace(v)
	}

	if v := get(KeyBgColor); v != "" {
		if draw.IsHexColor(v) {
			s.BgColor = v
		} else {
			slog.Warn("ignoring invalid setting", "key", KeyBgColor, "value", v)
		}
	}
	if v := get(KeyMaxLines); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n >= 1 {
			s.MaxLines = n
		} else {
			slog.Warn("ignoring invalid setting", "key", KeyMaxLines, "value", v)
		}
	}
	if v := get(KeyColors); v != "" {
		colors, err := decodeColors(v)
		if err == nil {
			s.Colors = colors
		} else {
			slog.Warn("ignoring invalid setting", "key", KeyColors, "err", err)
		}
	}
	return s
}

// Save writes all three keys, atomically when store is a
// host.BatchSettingsStore.
func Save(ctx context.Context, store host.SettingsStore, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return host.SetAll(ctx, store, map[string]string{
		KeyBgColor:  s.BgColor,
		KeyMaxLines: strconv.Itoa(s.MaxLines),
		KeyColors:   mustJSON(s.Colors),
	})
}

func decodeColors(v string) ([]string, error) {
	var colors []string
	if err := json.Unmarshal([]byte(v), &colors); err != nil {
		return nil, fmt.Errorf("colors: %w", err)
	}
	if len(colors) == 0 {
		return nil, errors.New("colors: empty list")
	}
	for _, c := range colors {
		if !draw.IsHexColor(c) {
			return nil, fmt.Errorf("colors: %q is not a #rrggbb colour", c)
		}
	}
	return colors, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
