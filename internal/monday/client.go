// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package monday implements the board transport against the Monday.com
// GraphQL API. One Client is bound to one board; authentication is a
// bearer token attached once per process.
package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/msewell13/abs-scrape-sub000/boardsync"
)

const (
	// DefaultAPIURL is the production GraphQL endpoint.
	DefaultAPIURL = "https://api.monday.com/v2"

	apiVersion = "2024-10"

	// pageLimit is the items_page maximum the API allows per request.
	pageLimit = 100
)

// Client talks to one Monday board. It implements boardsync.Board.
type Client struct {
	apiURL  string
	token   string
	boardID string
	http    *http.Client
	logger  *slog.Logger

	kindByID   map[string]string // column id -> column kind
	nameByID   map[string]string // column id -> source field name
	nameColumn string            // column id whose value is the item name
}

// New creates a client bound to one board. columns drive both the column
// value encoding on writes and the field naming on reads. The column with
// id "name" (if present) maps to the item's display name.
func New(apiURL, token, boardID string, columns []boardsync.ColumnDef, logger *slog.Logger) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		apiURL:     apiURL,
		token:      token,
		boardID:    boardID,
		http:       &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		kindByID:   make(map[string]string, len(columns)),
		nameByID:   make(map[string]string, len(columns)),
		nameColumn: "name",
	}
	for _, col := range columns {
		c.kindByID[col.ID] = col.Kind
		c.nameByID[col.ID] = col.Name
	}
	return c
}

type itemsPage struct {
	Cursor string `json:"cursor"`
	Items  []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		ColumnValues []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"column_values"`
	} `json:"items"`
}

// ListPage fetches one page of board items. The first page goes through
// boards.items_page; follow-up pages use next_items_page with the cursor
// the previous response handed back.
func (c *Client) ListPage(ctx context.Context, cursor string) ([]boardsync.RemoteItem, string, error) {
	var page itemsPage
	if cursor == "" {
		var resp struct {
			Boards []struct {
				ItemsPage itemsPage `json:"items_page"`
			} `json:"boards"`
		}
		query := `query ($board: [ID!], $limit: Int!) {
			boards (ids: $board) { items_page (limit: $limit) {
				cursor items { id name column_values { id text } } } } }`
		err := c.do(ctx, query, map[string]any{"board": []string{c.boardID}, "limit": pageLimit}, &resp)
		if err != nil {
			return nil, "", err
		}
		if len(resp.Boards) == 0 {
			return nil, "", fmt.Errorf("board %s not found", c.boardID)
		}
		page = resp.Boards[0].ItemsPage
	} else {
		var resp struct {
			NextItemsPage itemsPage `json:"next_items_page"`
		}
		query := `query ($cursor: String!, $limit: Int!) {
			next_items_page (cursor: $cursor, limit: $limit) {
				cursor items { id name column_values { id text } } } }`
		err := c.do(ctx, query, map[string]any{"cursor": cursor, "limit": pageLimit}, &resp)
		if err != nil {
			return nil, "", err
		}
		page = resp.NextItemsPage
	}

	items := make([]boardsync.RemoteItem, 0, len(page.Items))
	for _, it := range page.Items {
		fields := make(map[string]string, len(it.ColumnValues)+1)
		if name, ok := c.nameByID[c.nameColumn]; ok {
			fields[name] = it.Name
		}
		for _, cv := range it.ColumnValues {
			if name, ok := c.nameByID[cv.ID]; ok {
				fields[name] = cv.Text
			}
		}
		items = append(items, boardsync.RemoteItem{ID: it.ID, Fields: fields})
	}
	return items, page.Cursor, nil
}

// CreateItem creates a board item. The "name" column value becomes the
// item's display name; everything else goes through column_values.
func (c *Client) CreateItem(ctx context.Context, fields map[string]any) (string, error) {
	name := boardsync.Stringify(fields[c.nameColumn])
	if name == "" {
		name = "(untitled)"
	}
	colJSON, err := c.encodeColumnValues(fields)
	if err != nil {
		return "", err
	}

	var resp struct {
		CreateItem struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}
	query := `mutation ($board: ID!, $name: String!, $cols: JSON!) {
		create_item (board_id: $board, item_name: $name, column_values: $cols,
			create_labels_if_missing: true) { id } }`
	err = c.do(ctx, query, map[string]any{"board": c.boardID, "name": name, "cols": colJSON}, &resp)
	if err != nil {
		return "", err
	}
	return resp.CreateItem.ID, nil
}

// UpdateItem overwrites the given columns on an existing item.
func (c *Client) UpdateItem(ctx context.Context, id string, fields map[string]any) error {
	colJSON, err := c.encodeColumnValues(fields)
	if err != nil {
		return err
	}

	var resp struct {
		Change struct {
			ID string `json:"id"`
		} `json:"change_multiple_column_values"`
	}
	query := `mutation ($board: ID!, $item: ID!, $cols: JSON!) {
		change_multiple_column_values (board_id: $board, item_id: $item,
			column_values: $cols, create_labels_if_missing: true) { id } }`
	return c.do(ctx, query, map[string]any{"board": c.boardID, "item": id, "cols": colJSON}, &resp)
}

// DeleteItem removes an item from the board.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	var resp struct {
		DeleteItem struct {
			ID string `json:"id"`
		} `json:"delete_item"`
	}
	query := `mutation ($item: ID!) { delete_item (item_id: $item) { id } }`
	return c.do(ctx, query, map[string]any{"item": id}, &resp)
}

// EnsureLabels is a no-op: every write mutation passes
// create_labels_if_missing, so dropdown labels are created on the fly.
func (c *Client) EnsureLabels(ctx context.Context, columnID string, labels []string) error {
	c.logger.Debug("labels created on write via create_labels_if_missing",
		"column", columnID, "labels", len(labels))
	return nil
}

// encodeColumnValues wraps mapped values in the per-kind envelopes the API
// expects and renders them as the JSON string the JSON! GraphQL scalar
// requires. The item name column is excluded; it travels as item_name.
func (c *Client) encodeColumnValues(fields map[string]any) (string, error) {
	values := make(map[string]any, len(fields))
	for id, v := range fields {
		if id == c.nameColumn {
			continue
		}
		switch c.kindByID[id] {
		case boardsync.ColDate:
			values[id] = map[string]any{"date": boardsync.Stringify(v)}
		case boardsync.ColCheckbox:
			checked, _ := v.(bool)
			values[id] = map[string]any{"checked": strconv.FormatBool(checked)}
		case boardsync.ColMultiLabel:
			joined := boardsync.Stringify(v)
			labels := []string{}
			if joined != "" {
				labels = strings.Split(joined, ",")
			}
			values[id] = map[string]any{"labels": labels}
		case boardsync.ColRelation:
			ids := []int64{}
			if s := boardsync.Stringify(v); s != "" {
				n, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					return "", fmt.Errorf("relation value %q is not an item id: %w", s, err)
				}
				ids = append(ids, n)
			}
			values[id] = map[string]any{"item_ids": ids}
		default:
			values[id] = boardsync.Stringify(v)
		}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode column values: %w", err)
	}
	return string(encoded), nil
}

type graphqlError struct {
	Message string `json:"message"`
}

// do executes one GraphQL request and decodes the data payload into out.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)
	req.Header.Set("API-Version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send graphql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			messages[i] = e.Message
		}
		return fmt.Errorf("graphql error: %s", strings.Join(messages, "; "))
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode graphql data: %w", err)
		}
	}
	return nil
}
