package model

import "time"

// Holiday ties a trip name to its packing list. A holiday never outlives its
// list: deleting the list removes the holiday too.
type Holiday struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	ListID string     `json:"listId"`
	Date   *time.Time `json:"date,omitempty"`
}
