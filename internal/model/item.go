package model

// PackingItem is a single thing to pack. CategoryID always references an
// existing CategoryDef; when a category is deleted its items are reassigned,
// never orphaned. Image is an optional data URI attached after creation.
type PackingItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
	IsPacked   bool   `json:"isPacked"`
	Image      string `json:"image,omitempty"`
	Notes      string `json:"notes,omitempty"`
}
