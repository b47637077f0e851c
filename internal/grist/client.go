// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package grist implements the board transport against a self-hosted
// Grist server's REST API. Unlike Monday, Grist owns documents and tables
// rather than boards; a Table value binds one table of one document and
// implements boardsync.Board.
package grist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// Client holds the server connection shared by all tables.
type Client struct {
	baseURL string
	apiKey  string
	org     string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Grist API client. server is the bare server URL
// (e.g. "https://grist.example.com"); org is the workspace name records
// live under.
func NewClient(server, apiKey, org string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(server, "/") + "/api",
		apiKey:  apiKey,
		org:     org,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Workspace is one Grist workspace with its documents.
type Workspace struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
	Docs []Doc       `json:"docs"`
}

// Doc identifies one Grist document.
type Doc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Column is one table column definition.
type Column struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ListWorkspaces returns every workspace the API key can see.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var out []Workspace
	if err := c.request(ctx, http.MethodGet, "/workspaces", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrCreateDoc finds a document by name inside the client's org
// workspace, creating it when absent.
func (c *Client) GetOrCreateDoc(ctx context.Context, docName string) (Doc, error) {
	workspaces, err := c.ListWorkspaces(ctx)
	if err != nil {
		return Doc{}, fmt.Errorf("list workspaces: %w", err)
	}

	var ws *Workspace
	for i := range workspaces {
		if workspaces[i].Name == c.org || workspaces[i].ID.String() == c.org {
			ws = &workspaces[i]
			break
		}
	}
	if ws == nil {
		return Doc{}, fmt.Errorf("workspace %q not found", c.org)
	}

	for _, doc := range ws.Docs {
		if doc.Name == docName {
			return doc, nil
		}
	}

	var docID string
	err = c.request(ctx, http.MethodPost, fmt.Sprintf("/workspaces/%s/docs", ws.ID.String()),
		map[string]any{"name": docName}, &docID)
	if err != nil {
		return Doc{}, fmt.Errorf("create document %q: %w", docName, err)
	}
	c.logger.Info("created grist document", "name", docName, "id", docID)
	return Doc{ID: docID, Name: docName}, nil
}

// EnsureTable creates the table when missing, or adds any missing columns
// to an existing one. Existing column types are never altered.
func (c *Client) EnsureTable(ctx context.Context, docID, tableID string, columns []Column) error {
	var tables struct {
		Tables []struct {
			ID string `json:"id"`
		} `json:"tables"`
	}
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/docs/%s/tables", docID), nil, &tables); err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	exists := false
	for _, t := range tables.Tables {
		if t.ID == tableID {
			exists = true
			break
		}
	}

	if !exists {
		body := map[string]any{"tables": []any{map[string]any{
			"id":      tableID,
			"columns": columnPayload(columns),
		}}}
		if err := c.request(ctx, http.MethodPost, fmt.Sprintf("/docs/%s/tables", docID), body, nil); err != nil {
			return fmt.Errorf("create table %q: %w", tableID, err)
		}
		c.logger.Info("created grist table", "doc", docID, "table", tableID)
		return nil
	}

	var schema struct {
		Columns []struct {
			ID string `json:"id"`
		} `json:"columns"`
	}
	err := c.request(ctx, http.MethodGet,
		fmt.Sprintf("/docs/%s/tables/%s/columns", docID, tableID), nil, &schema)
	if err != nil {
		return fmt.Errorf("get table schema: %w", err)
	}

	existing := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		existing[col.ID] = true
	}
	var missing []Column
	for _, col := range columns {
		if !existing[col.ID] {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	body := map[string]any{"columns": columnPayload(missing)}
	err = c.request(ctx, http.MethodPatch,
		fmt.Sprintf("/docs/%s/tables/%s/columns", docID, tableID), body, nil)
	if err != nil {
		return fmt.Errorf("add missing columns: %w", err)
	}
	c.logger.Info("added missing grist columns", "table", tableID, "columns", len(missing))
	return nil
}

func columnPayload(columns []Column) []any {
	out := make([]any, len(columns))
	for i, col := range columns {
		typ := col.Type
		if typ == "" {
			typ = "Text"
		}
		out[i] = map[string]any{"id": col.ID, "fields": map[string]any{"type": typ}}
	}
	return out
}

// InferColumns derives Grist column types from a sample record, the same
// way the original integration did: booleans map to Bool, whole numbers to
// Int, other numbers to Numeric, parseable date strings to DateTime, and
// everything else to Text.
func InferColumns(sample map[string]any) []Column {
	var columns []Column
	for key, value := range sample {
		colType := "Text"
		switch v := value.(type) {
		case bool:
			colType = "Bool"
		case float64:
			if v == math.Trunc(v) {
				colType = "Int"
			} else {
				colType = "Numeric"
			}
		case string:
			if _, err := time.Parse(time.RFC3339, v); err == nil {
				colType = "DateTime"
			} else if _, err := time.Parse("2006-01-02", v); err == nil {
				colType = "DateTime"
			}
		}
		columns = append(columns, Column{ID: key, Type: colType})
	}
	return columns
}

// request performs one API call and decodes the JSON response into out.
func (c *Client) request(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
