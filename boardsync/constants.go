// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

// Operation constants for planned board operations
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// KeySeparator joins business key segments. Multi-character on purpose so
// it cannot collide with anything the scrapers emit.
const KeySeparator = "|||"

// Column kinds understood by the field mapper
const (
	ColDate       = "date"
	ColText       = "text"
	ColMultiLabel = "multiLabel"
	ColCheckbox   = "checkbox"
	ColRelation   = "relation"
)
