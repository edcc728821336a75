package model

import (
	"math"
	"time"
)

// PackingList holds an ordered set of items. Templates (IsTemplate=true) are
// reusable masters used to seed trip lists; both kinds share the same shape.
type PackingList struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Items      []PackingItem `json:"items"`
	IsTemplate bool          `json:"isTemplate"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Progress returns the packed percentage rounded to the nearest integer.
// An empty list is 0, not a division by zero.
func (l *PackingList) Progress() int {
	if len(l.Items) == 0 {
		return 0
	}
	packed := 0
	for _, item := range l.Items {
		if item.IsPacked {
			packed++
		}
	}
	return int(math.Round(float64(packed) / float64(len(l.Items)) * 100))
}

// PackedCount returns how many items are marked packed.
func (l *PackingList) PackedCount() int {
	count := 0
	for _, item := range l.Items {
		if item.IsPacked {
			count++
		}
	}
	return count
}
