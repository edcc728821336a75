package model

// FallbackCategoryID is the last-resort bucket for items whose category
// disappeared. The registry invariant (never empty) normally makes the
// first remaining category the fallback instead.
const FallbackCategoryID = "cat_other"

// CategoryDef is a user-defined bucket items are grouped under.
type CategoryDef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// DefaultCategories returns the built-in taxonomy used when no categories
// have been stored yet.
func DefaultCategories() []CategoryDef {
	return []CategoryDef{
		{ID: "cat_essentials", Name: "Essentials", Icon: "⭐", Color: "#F59E0B"},
		{ID: "cat_clothing", Name: "Clothing", Icon: "👕", Color: "#3B82F6"},
		{ID: "cat_toiletries", Name: "Toiletries", Icon: "🧼", Color: "#10B981"},
		{ID: "cat_electronics", Name: "Electronics", Icon: "🔌", Color: "#8B5CF6"},
		{ID: "cat_documents", Name: "Documents", Icon: "🛂", Color: "#F43F5E"},
		{ID: "cat_health", Name: "Health", Icon: "💊", Color: "#EF4444"},
		{ID: FallbackCategoryID, Name: "Other", Icon: "📦", Color: "#64748B"},
	}
}
