// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msewell13/abs-scrape-sub000/boardsync"
	"github.com/msewell13/abs-scrape-sub000/internal/config"
)

func TestGristColumns_InfersTextTypesFromSample(t *testing.T) {
	ent := &config.Entity{Columns: []config.Column{
		{Name: "date", ID: "date", Kind: "date"},
		{Name: "active", ID: "active", Kind: "checkbox"},
		{Name: "employee", ID: "employee", Kind: "relation"},
		{Name: "bill_rate", ID: "rate", Kind: "text"},
		{Name: "client", ID: "client", Kind: "text"},
		{Name: "stamp", ID: "stamp", Kind: "text"},
	}}
	sample := boardsync.SourceRecord{
		"bill_rate": 26.36,
		"client":    "Smith, Tony",
		"stamp":     "2025-09-01T08:00:00Z",
	}

	cols := gristColumns(ent, sample)
	byID := make(map[string]string, len(cols))
	for _, col := range cols {
		byID[col.ID] = col.Type
	}

	// Fixed kind mappings win over inference.
	require.Equal(t, "Date", byID["date"])
	require.Equal(t, "Bool", byID["active"])
	require.Equal(t, "Int", byID["employee"])
	// Text kinds take the type inferred from the sample value.
	require.Equal(t, "Numeric", byID["rate"])
	require.Equal(t, "Text", byID["client"])
	require.Equal(t, "DateTime", byID["stamp"])
}

func TestGristColumns_NoSampleDefaultsToText(t *testing.T) {
	ent := &config.Entity{Columns: []config.Column{
		{Name: "bill_rate", ID: "rate", Kind: "text"},
	}}

	cols := gristColumns(ent, nil)
	require.Len(t, cols, 1)
	require.Equal(t, "Text", cols[0].Type)
}
