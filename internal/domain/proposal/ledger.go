// Package proposal layers user edits over an immutable optimizer proposal
// and reconciles the two into the lines that get persisted.
package proposal

import (
	"fmt"
	"sort"

	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

// AddedLine is a user-added line together with its display-only key
type AddedLine struct {
	DisplayKey string              `json:"display_key"`
	Line       entity.DecisionLine `json:"line"`
}

// Ledger records edits, removals and additions against one base proposal.
// It never touches the base proposal and never calls storage.
// A Ledger is not safe for concurrent use.
type Ledger struct {
	edited  map[entity.LineKey]entity.DecisionLine
	removed map[entity.LineKey]struct{}
	added   []AddedLine
	seq     int
	version uint64
}

// NewLedger returns an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		edited:  make(map[entity.LineKey]entity.DecisionLine),
		removed: make(map[entity.LineKey]struct{}),
	}
}

// Edit stores line as the full replacement for key, overwriting any earlier edit
func (l *Ledger) Edit(key entity.LineKey, line entity.DecisionLine) {
	l.edited[key] = line
	l.version++
}

// UndoEdit drops the edit for key, if any
func (l *Ledger) UndoEdit(key entity.LineKey) {
	if _, ok := l.edited[key]; ok {
		delete(l.edited, key)
		l.version++
	}
}

// Remove marks key as removed. Idempotent.
func (l *Ledger) Remove(key entity.LineKey) {
	if _, ok := l.removed[key]; ok {
		return
	}
	l.removed[key] = struct{}{}
	l.version++
}

// Unremove reverses Remove. Idempotent.
func (l *Ledger) Unremove(key entity.LineKey) {
	if _, ok := l.removed[key]; ok {
		delete(l.removed, key)
		l.version++
	}
}

// Add appends a new line and returns its synthetic display key
func (l *Ledger) Add(line entity.DecisionLine) string {
	l.seq++
	key := fmt.Sprintf("added-%d", l.seq)
	l.added = append(l.added, AddedLine{DisplayKey: key, Line: line})
	l.version++
	return key
}

// UndoAdd removes the added line at index
func (l *Ledger) UndoAdd(index int) error {
	if index < 0 || index >= len(l.added) {
		return apperror.Validation("index", "no added line at index %d", index)
	}
	l.added = append(l.added[:index], l.added[index+1:]...)
	l.version++
	return nil
}

// Clear empties the ledger. The version keeps counting so a stale
// snapshot can never match a cleared ledger.
func (l *Ledger) Clear() {
	l.edited = make(map[entity.LineKey]entity.DecisionLine)
	l.removed = make(map[entity.LineKey]struct{})
	l.added = nil
	l.version++
}

// IsEdited reports whether key has an edit recorded, regardless of removal
func (l *Ledger) IsEdited(key entity.LineKey) bool {
	_, ok := l.edited[key]
	return ok
}

// IsRemoved reports whether key is marked removed
func (l *Ledger) IsRemoved(key entity.LineKey) bool {
	_, ok := l.removed[key]
	return ok
}

// Edited returns the edits whose keys are not removed; removal wins
func (l *Ledger) Edited() map[entity.LineKey]entity.DecisionLine {
	out := make(map[entity.LineKey]entity.DecisionLine, len(l.edited))
	for k, v := range l.edited {
		if !l.IsRemoved(k) {
			out[k] = v
		}
	}
	return out
}

// Removed returns the removed keys in a stable order
func (l *Ledger) Removed() []entity.LineKey {
	out := make([]entity.LineKey, 0, len(l.removed))
	for k := range l.removed {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProjectID != out[j].ProjectID {
			return out[i].ProjectID < out[j].ProjectID
		}
		return out[i].ItemCode < out[j].ItemCode
	})
	return out
}

// Added returns a copy of the added lines in insertion order
func (l *Ledger) Added() []AddedLine {
	return append([]AddedLine(nil), l.added...)
}

// IsEmpty reports whether the ledger holds no changes
func (l *Ledger) IsEmpty() bool {
	return len(l.edited) == 0 && len(l.removed) == 0 && len(l.added) == 0
}

// Version increases on every mutation
func (l *Ledger) Version() uint64 {
	return l.version
}
