package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	empty := PackingList{}
	assert.Equal(t, 0, empty.Progress())

	list := PackingList{Items: []PackingItem{
		{ID: "a", IsPacked: true},
		{ID: "b", IsPacked: true},
		{ID: "c", IsPacked: true},
		{ID: "d"},
	}}
	assert.Equal(t, 75, list.Progress())
	assert.Equal(t, 3, list.PackedCount())

	third := PackingList{Items: []PackingItem{
		{ID: "a", IsPacked: true},
		{ID: "b"},
		{ID: "c"},
	}}
	assert.Equal(t, 33, third.Progress())
}

func TestDefaultCategoriesContainFallback(t *testing.T) {
	categories := DefaultCategories()
	assert.NotEmpty(t, categories)

	found := false
	for _, cat := range categories {
		if cat.ID == FallbackCategoryID {
			found = true
		}
	}
	assert.True(t, found, "fallback category must be part of the default taxonomy")
}
