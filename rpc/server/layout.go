package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/goccy/go-json"
	"github.com/spf13/viper"
)

// DefaultLayout is used when no layout file is configured. Tables are created at runtime.
var DefaultLayout = table.Layout{Version: 1, Tables: map[string]table.TableLayout{}}

// LoadLayout reads a table layout from a JSON, YAML or TOML file.
//
// JSON files are decoded directly. All other formats are read with viper,
// which treats keys case-insensitively, so table names are lower-cased.
func LoadLayout(path string) (table.Layout, error) {
	if path == "" {
		return DefaultLayout, nil
	}

	var layout table.Layout
	if strings.EqualFold(filepath.Ext(path), ".json") {
		raw, err := os.ReadFile(path)
		if err != nil {
			return layout, fmt.Errorf("failed to read layout file: %w", err)
		}
		if err := json.Unmarshal(raw, &layout); err != nil {
			return layout, fmt.Errorf("failed to parse layout file %s: %w", path, err)
		}
	} else {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return layout, fmt.Errorf("failed to read layout file: %w", err)
		}
		if err := v.Unmarshal(&layout); err != nil {
			return layout, fmt.Errorf("failed to parse layout file %s: %w", path, err)
		}
	}

	if layout.Tables == nil {
		layout.Tables = map[string]table.TableLayout{}
	}
	if err := layout.Validate(); err != nil {
		return layout, fmt.Errorf("invalid layout file %s: %w", path, err)
	}
	return layout, nil
}
