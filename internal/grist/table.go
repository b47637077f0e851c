// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package grist

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/msewell13/abs-scrape-sub000/boardsync"
)

// Table binds one table of one document and implements boardsync.Board.
type Table struct {
	client  *Client
	docID   string
	tableID string

	kindByID map[string]string // column id -> column kind
}

// NewTable creates a board view over one Grist table. columns drive the
// value encoding on writes.
func NewTable(client *Client, docID, tableID string, columns []boardsync.ColumnDef) *Table {
	kinds := make(map[string]string, len(columns))
	for _, col := range columns {
		kinds[col.ID] = col.Kind
	}
	return &Table{client: client, docID: docID, tableID: tableID, kindByID: kinds}
}

type recordEnvelope struct {
	Records []struct {
		ID     int64          `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"records"`
}

// ListPage returns the table's records. Grist's records endpoint has no
// cursor; it hands back the whole table in one response, so this is a
// single-page walk (empty next cursor on the first call).
func (t *Table) ListPage(ctx context.Context, cursor string) ([]boardsync.RemoteItem, string, error) {
	if cursor != "" {
		return nil, "", fmt.Errorf("unexpected cursor %q for grist listing", cursor)
	}
	var out recordEnvelope
	err := t.client.request(ctx, http.MethodGet, t.recordsPath(), nil, &out)
	if err != nil {
		return nil, "", fmt.Errorf("list records: %w", err)
	}

	items := make([]boardsync.RemoteItem, 0, len(out.Records))
	for _, rec := range out.Records {
		fields := make(map[string]string, len(rec.Fields))
		for name, value := range rec.Fields {
			fields[name] = boardsync.Stringify(value)
		}
		items = append(items, boardsync.RemoteItem{
			ID:     strconv.FormatInt(rec.ID, 10),
			Fields: fields,
		})
	}
	return items, "", nil
}

// CreateItem adds one record and returns its row id.
func (t *Table) CreateItem(ctx context.Context, fields map[string]any) (string, error) {
	body := map[string]any{"records": []any{map[string]any{"fields": t.encode(fields)}}}
	var out recordEnvelope
	err := t.client.request(ctx, http.MethodPost, t.recordsPath(), body, &out)
	if err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}
	if len(out.Records) == 0 {
		return "", fmt.Errorf("create record: empty response")
	}
	return strconv.FormatInt(out.Records[0].ID, 10), nil
}

// UpdateItem patches the given fields on one record.
func (t *Table) UpdateItem(ctx context.Context, id string, fields map[string]any) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("record id %q is not numeric: %w", id, err)
	}
	body := map[string]any{"records": []any{map[string]any{"id": rowID, "fields": t.encode(fields)}}}
	if err := t.client.request(ctx, http.MethodPatch, t.recordsPath(), body, nil); err != nil {
		return fmt.Errorf("update record %s: %w", id, err)
	}
	return nil
}

// DeleteItem removes one record.
func (t *Table) DeleteItem(ctx context.Context, id string) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("record id %q is not numeric: %w", id, err)
	}
	path := fmt.Sprintf("/docs/%s/tables/%s/data/delete", t.docID, t.tableID)
	if err := t.client.request(ctx, http.MethodPost, path, []int64{rowID}, nil); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return nil
}

// EnsureLabels is a no-op: multi-label values are stored as free text in
// Grist, so there is nothing to pre-register.
func (t *Table) EnsureLabels(ctx context.Context, columnID string, labels []string) error {
	t.client.logger.Debug("grist stores labels as text, nothing to ensure",
		"column", columnID, "labels", len(labels))
	return nil
}

// encode converts mapped values to Grist cell values. Relations become
// numeric row references; checkboxes stay booleans; everything else is
// written as text.
func (t *Table) encode(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for id, v := range fields {
		switch t.kindByID[id] {
		case boardsync.ColCheckbox:
			checked, _ := v.(bool)
			out[id] = checked
		case boardsync.ColRelation:
			if n, err := strconv.ParseInt(boardsync.Stringify(v), 10, 64); err == nil {
				out[id] = n
			} else {
				out[id] = nil
			}
		default:
			out[id] = boardsync.Stringify(v)
		}
	}
	return out
}

func (t *Table) recordsPath() string {
	return fmt.Sprintf("/docs/%s/tables/%s/records", t.docID, t.tableID)
}
