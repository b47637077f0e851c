// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

import (
	"fmt"
	"strconv"
	"strings"
)

// SourceRecord is one flat entity snapshot produced by upstream extraction.
// Values are the JSON scalar types: string, float64, bool, or nil.
// Records are consumed fresh each cycle and carry no identity beyond their
// field values.
type SourceRecord map[string]any

// BuildKey derives the business key for a record from the ordered keyFields.
// Missing or null fields become empty segments (not dropped) so positional
// alignment is preserved across records. ok is false iff every segment is
// empty; such a record cannot be matched and must be treated as new.
func BuildKey(rec SourceRecord, keyFields []string) (key string, ok bool) {
	parts := make([]string, len(keyFields))
	for i, name := range keyFields {
		s := Stringify(rec[name])
		parts[i] = s
		if s != "" {
			ok = true
		}
	}
	return strings.Join(parts, KeySeparator), ok
}

// RemoteKey derives the business key for a remote item by reading through
// its field map with the same keyFields the source side uses.
func RemoteKey(item RemoteItem, keyFields []string) (key string, ok bool) {
	parts := make([]string, len(keyFields))
	for i, name := range keyFields {
		s := item.Fields[name]
		parts[i] = s
		if s != "" {
			ok = true
		}
	}
	return strings.Join(parts, KeySeparator), ok
}

// Stringify coerces a source scalar to its canonical string form.
// Numbers drop trailing zeros ("26.36", not "26.360000") so a key built
// from a number matches the text the store hands back.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
