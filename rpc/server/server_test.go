package server

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/db/engines/maple"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/ValentinKolb/tKV/lib/table/ltable"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/goccy/go-json"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadLayout(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		layout, err := LoadLayout("")
		if err != nil || layout.Version != 1 || len(layout.Tables) != 0 {
			t.Errorf("Expected the default layout, got %v (err=%v)", layout, err)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		path := writeFile(t, "layout.json", `{"version": 3, "tables": {"Users": {"indexes": [{"keyPath": "age"}]}, "logs": {}}}`)
		layout, err := LoadLayout(path)
		if err != nil {
			t.Fatalf("LoadLayout failed: %v", err)
		}
		if layout.Version != 3 {
			t.Errorf("Expected version 3, got %d", layout.Version)
		}
		if idx := layout.Tables["Users"].Indexes; len(idx) != 1 || idx[0].KeyPath != "age" {
			t.Errorf("Expected index age on Users, got %v", layout.Tables)
		}
	})

	t.Run("YAML", func(t *testing.T) {
		path := writeFile(t, "layout.yaml", "version: 2\ntables:\n  users:\n    indexes:\n      - keyPath: address.city\n")
		layout, err := LoadLayout(path)
		if err != nil {
			t.Fatalf("LoadLayout failed: %v", err)
		}
		if idx := layout.Tables["users"].Indexes; layout.Version != 2 || len(idx) != 1 || idx[0].KeyPath != "address.city" {
			t.Errorf("Unexpected layout %v", layout)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		path := writeFile(t, "layout.json", `{"version": 0}`)
		if _, err := LoadLayout(path); err == nil {
			t.Errorf("Expected an error for version 0")
		}
		if _, err := LoadLayout(filepath.Join(t.TempDir(), "missing.json")); err == nil {
			t.Errorf("Expected an error for a missing file")
		}
	})
}

func openProvider(t *testing.T) table.ITableProvider {
	layout := table.Layout{Version: 1, Tables: map[string]table.TableLayout{
		"users": {Indexes: []table.IndexLayout{{KeyPath: "age"}}},
	}}
	conn := ltable.NewLocalConnector(func() (db.Engine, error) { return maple.NewMapleDB(nil) }, layout)
	if err := conn.Open(nil); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestTableAdapter(t *testing.T) {
	adapter := NewTableServerAdapter()
	provider := openProvider(t)

	resp := adapter.Handle(common.NewHasTableRequest("users"), provider)
	if !resp.Ok || resp.Err != "" {
		t.Errorf("Expected table users to exist, got %+v", resp)
	}

	resp = adapter.Handle(common.NewSetRequest("users", "u1", []byte(`{"name":"Alice","age":30}`)), provider)
	if resp.MsgType != common.MsgTTBLSet || resp.Err != "" {
		t.Fatalf("Set failed: %+v", resp)
	}

	resp = adapter.Handle(common.NewGetRequest("users", "u1"), provider)
	var rec db.Record
	if err := json.Unmarshal(resp.Value, &rec); err != nil || !resp.Ok || rec["name"] != "Alice" {
		t.Errorf("Expected Alice, got %+v (err=%v)", resp, err)
	}

	resp = adapter.Handle(common.NewGetRequest("users", "missing"), provider)
	if resp.Ok || resp.Value != nil || resp.Err != "" {
		t.Errorf("Expected a missing record, got %+v", resp)
	}

	resp = adapter.Handle(common.NewListRequest("users", []byte(`{"where":{"key":"age","operator":">=","value":30}}`)), provider)
	var recs []db.Record
	if err := json.Unmarshal(resp.Value, &recs); err != nil || len(recs) != 1 {
		t.Errorf("Expected one record, got %s (err=%v)", resp.Value, err)
	}

	resp = adapter.Handle(common.NewListRequest("users", []byte(`{"where":{"key":"age","operator":"==","value":99}}`)), provider)
	if string(resp.Value) != "[]" {
		t.Errorf("Expected an empty list, got %s", resp.Value)
	}

	resp = adapter.Handle(common.NewCountRequest("users", nil), provider)
	if resp.Number != 1 {
		t.Errorf("Expected count 1, got %d", resp.Number)
	}

	t.Run("Errors", func(t *testing.T) {
		resp := adapter.Handle(common.NewGetRequest("orders", "o1"), provider)
		if resp.MsgType != common.MsgTTBLGet || !errors.Is(resp.ToError(), table.ErrTableNotFound) {
			t.Errorf("Expected ErrTableNotFound, got %+v", resp)
		}

		resp = adapter.Handle(common.NewListRequest("users", []byte(`{"where":{"key":"email","operator":"==","value":"x"}}`)), provider)
		err := resp.ToError()
		if !errors.Is(err, table.ErrInvalidQuery) || !errors.Is(err, table.ErrIndexNotFound) {
			t.Errorf("Expected ErrInvalidQuery caused by ErrIndexNotFound, got %v", err)
		}

		resp = adapter.Handle(common.NewListRequest("users", []byte(`{not json`)), provider)
		if !errors.Is(resp.ToError(), table.ErrInvalidQuery) {
			t.Errorf("Expected ErrInvalidQuery for a malformed query, got %+v", resp)
		}

		resp = adapter.Handle(common.NewSetRequest("users", "u2", []byte(`[1,2]`)), provider)
		if resp.Err == "" {
			t.Errorf("Expected an error for a non object record")
		}

		resp = adapter.Handle(&common.Message{MsgType: common.MsgTSuccess}, provider)
		if resp.MsgType != common.MsgTError {
			t.Errorf("Expected an error response for an unsupported type, got %+v", resp)
		}

		resp = adapter.Handle(common.NewCreateTableRequest("users"), provider)
		if !errors.Is(resp.ToError(), table.ErrTableExists) {
			t.Errorf("Expected ErrTableExists, got %+v", resp)
		}
	})
}
