// Package records maintains the federation record book: the best-ever mark
// per (movement, division, sex, equipment, weight class). Marks only move
// up, and only when strictly beaten.
package records

import (
	"fmt"
	"sort"
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// Key identifies one record slot.
type Key struct {
	Movement    shared.Movement      `json:"movement"`
	Division    eligibility.Division `json:"division"`
	Sex         shared.Sex           `json:"sex"`
	Equipment   shared.Equipment     `json:"equipment"`
	WeightClass string               `json:"weight_class"`
}

// String renders the key as "movement|division|sex|equipment|class".
func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", k.Movement, k.Division, k.Sex, k.Equipment, k.WeightClass)
}

// Record is the current best mark for a key.
type Record struct {
	Key         Key       `json:"key"`
	Weight      float64   `json:"weight"`
	AthleteName string    `json:"athlete_name"`
	Team        string    `json:"team,omitempty"`
	Competition string    `json:"competition,omitempty"`
	Date        time.Time `json:"date"`
}

// Outcome is the result of proposing a mark.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeKept    Outcome = "kept-existing"
	OutcomeFailed  Outcome = "failed"
)

// Proposal reports what a proposed mark did to the book.
type Proposal struct {
	Outcome  Outcome `json:"outcome"`
	Record   Record  `json:"record"`
	Previous *Record `json:"previous,omitempty"`
}

// Book is an in-memory snapshot of records. It is not safe for concurrent
// use; callers serialize writers per dataset.
type Book struct {
	records map[Key]Record
	changed map[Key]struct{}
}

// NewBook creates a book over an existing snapshot.
func NewBook(existing []Record) *Book {
	b := &Book{
		records: make(map[Key]Record, len(existing)),
		changed: make(map[Key]struct{}),
	}
	for _, r := range existing {
		if cur, ok := b.records[r.Key]; ok && cur.Weight >= r.Weight {
			continue
		}
		b.records[r.Key] = r
	}
	return b
}

// Get returns the record for a key.
func (b *Book) Get(k Key) (Record, bool) {
	r, ok := b.records[k]
	return r, ok
}

// Len returns the number of record slots held.
func (b *Book) Len() int {
	return len(b.records)
}

// ProposeUpdate applies a candidate mark. A new key is created; an existing
// record is replaced only by a strictly heavier mark. Ties keep the
// first-recorded mark.
func (b *Book) ProposeUpdate(candidate Record) Proposal {
	existing, ok := b.records[candidate.Key]
	if !ok {
		b.records[candidate.Key] = candidate
		b.changed[candidate.Key] = struct{}{}
		return Proposal{Outcome: OutcomeCreated, Record: candidate}
	}

	if candidate.Weight > existing.Weight {
		prev := existing
		b.records[candidate.Key] = candidate
		b.changed[candidate.Key] = struct{}{}
		return Proposal{Outcome: OutcomeUpdated, Record: candidate, Previous: &prev}
	}

	return Proposal{Outcome: OutcomeKept, Record: existing}
}

// Changed returns records created or updated since the book was loaded,
// ordered by key.
func (b *Book) Changed() []Record {
	out := make([]Record, 0, len(b.changed))
	for k := range b.changed {
		out = append(out, b.records[k])
	}
	sortRecords(out)
	return out
}

// All returns every record ordered by key.
func (b *Book) All() []Record {
	out := make([]Record, 0, len(b.records))
	for _, r := range b.records {
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

func sortRecords(rs []Record) {
	sort.Slice(rs, func(i, j int) bool {
		return rs[i].Key.String() < rs[j].Key.String()
	})
}
