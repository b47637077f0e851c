// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import (
	"log/slog"
)

// ColumnDef describes one board column the mapper writes to. Name is the
// source record field; ID is the store's column identifier; Kind selects
// the coercion rule.
type ColumnDef struct {
	Name string
	ID   string
	Kind string
}

// FieldMapper translates a flat source record into the store's column
// representation. Columns absent from the record are omitted from the
// output (leaving the remote value untouched) unless allow-listed in
// alwaysSend, in which case an explicit empty value is emitted so stale
// remote state is cleared.
type FieldMapper struct {
	columns    []ColumnDef
	alwaysSend map[string]bool
	resolver   RelationResolver
	logger     *slog.Logger
}

// NewFieldMapper creates a mapper for one entity's column set. resolver
// may be nil when the entity has no relation columns.
func NewFieldMapper(columns []ColumnDef, alwaysSend []string, resolver RelationResolver, logger *slog.Logger) *FieldMapper {
	always := make(map[string]bool, len(alwaysSend))
	for _, name := range alwaysSend {
		always[name] = true
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldMapper{
		columns:    columns,
		alwaysSend: always,
		resolver:   resolver,
		logger:     logger,
	}
}

// MapFields applies the per-kind coercion rules and returns store-native
// values keyed by column id. A relation that cannot be resolved is logged
// and left unset rather than failing the record.
func (m *FieldMapper) MapFields(rec SourceRecord) map[string]any {
	out := make(map[string]any, len(m.columns))
	for _, col := range m.columns {
		raw, present := rec[col.Name]
		if !present || raw == nil {
			if m.alwaysSend[col.Name] {
				out[col.ID] = emptyValue(col.Kind)
			}
			continue
		}

		switch col.Kind {
		case ColDate:
			// ISO-like date strings pass through untouched; the store owns
			// timezone interpretation.
			out[col.ID] = Stringify(raw)
		case ColText:
			out[col.ID] = Stringify(raw)
		case ColMultiLabel:
			labels := SplitLabels(Stringify(raw))
			if len(labels) == 0 {
				if m.alwaysSend[col.Name] {
					out[col.ID] = ""
				}
				continue
			}
			out[col.ID] = JoinLabels(labels)
		case ColCheckbox:
			out[col.ID] = toBool(raw)
		case ColRelation:
			name := Stringify(raw)
			if m.resolver == nil {
				m.logger.Warn("relation column has no resolver, leaving unset", "column", col.Name)
				continue
			}
			id, strategy, ok := m.resolver.Resolve(name)
			if !ok {
				m.logger.Warn("relation name not resolved, leaving unset",
					"column", col.Name, "name", name)
				continue
			}
			m.logger.Debug("relation resolved",
				"column", col.Name, "name", name, "strategy", strategy)
			out[col.ID] = id
		default:
			out[col.ID] = Stringify(raw)
		}
	}
	return out
}

// MultiLabelColumns returns the ids of the mapper's multi-label columns.
func (m *FieldMapper) MultiLabelColumns() []string {
	var ids []string
	for _, col := range m.columns {
		if col.Kind == ColMultiLabel {
			ids = append(ids, col.ID)
		}
	}
	return ids
}

// fieldUnchanged reports whether a mapped value matches the store's text
// rendering of the same column. Text and date values compare verbatim.
// Checkbox text varies by store (Monday renders checked as "v", Grist as
// "true"), so both sides reduce to a boolean. A relation carries the item
// id on the mapped side but usually the linked item's display name in the
// remote text; when the verbatim compare misses, the remote text goes
// through the same resolution cascade the mapper used.
func (m *FieldMapper) fieldUnchanged(col ColumnDef, mapped any, remote string) bool {
	switch col.Kind {
	case ColCheckbox:
		checked, _ := mapped.(bool)
		return checked == toBool(remote)
	case ColRelation:
		if Stringify(mapped) == remote {
			return true
		}
		if m.resolver == nil {
			return false
		}
		id, _, ok := m.resolver.Resolve(remote)
		return ok && id == Stringify(mapped)
	default:
		return Stringify(mapped) == remote
	}
}

func emptyValue(kind string) any {
	if kind == ColCheckbox {
		return false
	}
	return ""
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		// "v" is how Monday renders a checked checkbox column's text.
		return t == "true" || t == "TRUE" || t == "1" || t == "yes" || t == "checked" || t == "v"
	case float64:
		return t != 0
	default:
		return false
	}
}
