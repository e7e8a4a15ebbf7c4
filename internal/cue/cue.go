// Package cue defines timestamped text cues, the transcript document that
// carries them, drafts, and the storage keys both are persisted under.
//
// Cue lists are plain slices kept in ascending timestamp order. Helpers in this
// package never reorder equal timestamps, so insertion order breaks ties.
package cue

import (
	"math"
	"slices"
)

// Cue is one announcement anchored to a media position in seconds.
type Cue struct {
	ID        string  `json:"id,omitempty" yaml:"id,omitempty"`
	Timestamp float64 `json:"timestamp" yaml:"timestamp" validate:"gte=0"`
	Text      string  `json:"text" yaml:"text"`
}

// Sort orders list by ascending timestamp in place. Equal timestamps keep
// their relative order.
func Sort(list []Cue) {
	slices.SortStableFunc(list, func(a, b Cue) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})
}

// Sorted returns a sorted copy of list.
func Sorted(list []Cue) []Cue {
	out := Clone(list)
	Sort(out)
	return out
}

// IsSorted reports whether list is in ascending timestamp order.
func IsSorted(list []Cue) bool {
	for i := 1; i < len(list); i++ {
		if list[i].Timestamp < list[i-1].Timestamp {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of list. A nil list clones to an empty one.
func Clone(list []Cue) []Cue {
	out := make([]Cue, len(list))
	copy(out, list)
	return out
}

// Equal reports whether a and b hold the same timestamps and texts in the
// same order. Cue ids do not participate.
func Equal(a, b []Cue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Timestamp != b[i].Timestamp || a[i].Text != b[i].Text {
			return false
		}
	}
	return true
}

// From returns the cues of a sorted list whose timestamp is at or after start.
func From(list []Cue, start float64) []Cue {
	idx, _ := slices.BinarySearchFunc(list, start, func(c Cue, target float64) int {
		switch {
		case c.Timestamp < target:
			return -1
		case c.Timestamp > target:
			return 1
		default:
			return 0
		}
	})
	return Clone(list[idx:])
}

// IndexOf returns the index of the first cue whose timestamp equals ts, or -1.
func IndexOf(list []Cue, ts float64) int {
	for i, c := range list {
		if c.Timestamp == ts {
			return i
		}
	}
	return -1
}

// RoundMillis rounds seconds to millisecond precision so repeated fractional
// moves do not accumulate binary floating point drift.
func RoundMillis(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}
