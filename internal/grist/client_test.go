// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package grist

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetOrCreateDoc_FindsExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.Equal(t, "/api/workspaces", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 3, "name": "Ops", "docs": []map[string]any{
				{"id": "doc-abc", "name": "Shifts"},
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "Ops", testLogger())
	doc, err := c.GetOrCreateDoc(context.Background(), "Shifts")
	require.NoError(t, err)
	require.Equal(t, "doc-abc", doc.ID)
}

func TestGetOrCreateDoc_CreatesMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/workspaces":
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": 3, "name": "Ops", "docs": []map[string]any{}},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/workspaces/3/docs":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "Shifts", body["name"])
			json.NewEncoder(w).Encode("doc-new")
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	// Workspaces may be addressed by numeric id as well as by name.
	c := NewClient(srv.URL, "key-1", "3", testLogger())
	doc, err := c.GetOrCreateDoc(context.Background(), "Shifts")
	require.NoError(t, err)
	require.Equal(t, "doc-new", doc.ID)
}

func TestGetOrCreateDoc_WorkspaceMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{"id": 1, "name": "Other"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "Ops", testLogger())
	_, err := c.GetOrCreateDoc(context.Background(), "Shifts")
	require.ErrorContains(t, err, `workspace "Ops" not found`)
}

func TestEnsureTable_CreatesWhenAbsent(t *testing.T) {
	var created map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/docs/d1/tables":
			json.NewEncoder(w).Encode(map[string]any{"tables": []any{}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/docs/d1/tables":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.Write([]byte("{}"))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "Ops", testLogger())
	err := c.EnsureTable(context.Background(), "d1", "Shifts", []Column{
		{ID: "date", Type: "Date"},
		{ID: "client"},
	})
	require.NoError(t, err)

	tables := created["tables"].([]any)
	require.Len(t, tables, 1)
	table := tables[0].(map[string]any)
	require.Equal(t, "Shifts", table["id"])
	cols := table["columns"].([]any)
	require.Len(t, cols, 2)
	// An unset column type defaults to Text.
	second := cols[1].(map[string]any)
	require.Equal(t, map[string]any{"type": "Text"}, second["fields"])
}

func TestEnsureTable_PatchesMissingColumns(t *testing.T) {
	var patched map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/docs/d1/tables":
			json.NewEncoder(w).Encode(map[string]any{"tables": []any{map[string]any{"id": "Shifts"}}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/docs/d1/tables/Shifts/columns":
			json.NewEncoder(w).Encode(map[string]any{"columns": []any{map[string]any{"id": "date"}}})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/docs/d1/tables/Shifts/columns":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			w.Write([]byte("{}"))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "Ops", testLogger())
	err := c.EnsureTable(context.Background(), "d1", "Shifts", []Column{
		{ID: "date", Type: "Date"},
		{ID: "client", Type: "Text"},
	})
	require.NoError(t, err)

	cols := patched["columns"].([]any)
	require.Len(t, cols, 1)
	require.Equal(t, "client", cols[0].(map[string]any)["id"])
}

func TestEnsureTable_NoChangesNeeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/docs/d1/tables":
			json.NewEncoder(w).Encode(map[string]any{"tables": []any{map[string]any{"id": "Shifts"}}})
		case r.URL.Path == "/api/docs/d1/tables/Shifts/columns":
			json.NewEncoder(w).Encode(map[string]any{"columns": []any{map[string]any{"id": "date"}}})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "Ops", testLogger())
	err := c.EnsureTable(context.Background(), "d1", "Shifts", []Column{{ID: "date", Type: "Date"}})
	require.NoError(t, err)
}

func TestInferColumns(t *testing.T) {
	cols := InferColumns(map[string]any{
		"active": true,
		"count":  float64(3),
		"rate":   26.36,
		"date":   "2025-09-01",
		"stamp":  "2025-09-01T08:00:00Z",
		"note":   "hello",
	})

	byID := make(map[string]string, len(cols))
	for _, col := range cols {
		byID[col.ID] = col.Type
	}
	require.Equal(t, "Bool", byID["active"])
	require.Equal(t, "Int", byID["count"])
	require.Equal(t, "Numeric", byID["rate"])
	require.Equal(t, "DateTime", byID["date"])
	require.Equal(t, "DateTime", byID["stamp"])
	require.Equal(t, "Text", byID["note"])
}

func TestRequest_ErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("bad api key"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "Ops", testLogger())
	_, err := c.ListWorkspaces(context.Background())
	require.ErrorContains(t, err, "status 403")
	require.ErrorContains(t, err, "bad api key")
}
