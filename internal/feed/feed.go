// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package feed loads the source record snapshot the scrapers produce.
// Snapshots arrive as a JSON array (sometimes wrapped in an object) or as
// CSV; either way the result is a flat ordered record sequence consumed
// once per cycle.
package feed

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/msewell13/abs-scrape-sub000/boardsync"
)

// LoadFile reads a snapshot file, dispatching on extension.
func LoadFile(path string) ([]boardsync.SourceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(f)
	case ".csv":
		return LoadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported feed format %q (want .json or .csv)", filepath.Ext(path))
	}
}

// LoadJSON decodes a record snapshot. Scrapers usually emit a bare array,
// but some wrap it in an object; a wrapper holding exactly one array is
// unwrapped, one holding several is rejected as ambiguous, and a plain
// object becomes a single-record snapshot.
func LoadJSON(r io.Reader) ([]boardsync.SourceRecord, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode feed json: %w", err)
	}

	switch v := raw.(type) {
	case []any:
		return toRecords(v)
	case map[string]any:
		var arrays []string
		for key, value := range v {
			if _, ok := value.([]any); ok {
				arrays = append(arrays, key)
			}
		}
		switch len(arrays) {
		case 0:
			return []boardsync.SourceRecord{boardsync.SourceRecord(v)}, nil
		case 1:
			return toRecords(v[arrays[0]].([]any))
		default:
			sort.Strings(arrays)
			return nil, fmt.Errorf("feed json wraps %d arrays (%s); cannot choose one",
				len(arrays), strings.Join(arrays, ", "))
		}
	default:
		return nil, fmt.Errorf("feed json must be an array or object, got %T", raw)
	}
}

func toRecords(list []any) ([]boardsync.SourceRecord, error) {
	records := make([]boardsync.SourceRecord, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("feed entry %d is not an object (got %T)", i, entry)
		}
		records = append(records, boardsync.SourceRecord(obj))
	}
	return records, nil
}

// LoadCSV reads a header-row CSV snapshot. Empty cells become nil so the
// mapper treats them as absent, matching the JSON path's null handling.
func LoadCSV(r io.Reader) ([]boardsync.SourceRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var records []boardsync.SourceRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rec := make(boardsync.SourceRecord, len(header))
		for i, name := range header {
			if i >= len(row) || row[i] == "" {
				rec[name] = nil
				continue
			}
			rec[name] = row[i]
		}
		records = append(records, rec)
	}
	return records, nil
}
