// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package boardsync

// Failure records a single operation that could not be applied. Enough
// context is kept (key, operation, cause) to diagnose without re-running
// the cycle.
type Failure struct {
	Key string `json:"key"`
	Op  string `json:"op"`
	Err string `json:"error"`
}

// Outcome is the externally observable result of one reconciliation cycle.
// It is built incrementally while the cycle runs and must be treated as
// immutable once the cycle finishes.
type Outcome struct {
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	Deleted  int       `json:"deleted"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"` // matched records the diff strategy chose not to write
	Failures []Failure `json:"failures,omitempty"`
}

// Merge folds another outcome into this one.
func (o *Outcome) Merge(other *Outcome) {
	if other == nil {
		return
	}
	o.Created += other.Created
	o.Updated += other.Updated
	o.Deleted += other.Deleted
	o.Failed += other.Failed
	o.Skipped += other.Skipped
	o.Failures = append(o.Failures, other.Failures...)
}

func (o *Outcome) recordFailure(key, op string, err error) {
	o.Failed++
	o.Failures = append(o.Failures, Failure{Key: key, Op: op, Err: err.Error()})
}
