package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packing-planner/internal/model"
)

func newTestRepo(t *testing.T) *SnapshotRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return NewSnapshotRepository(db)
}

func TestLoadDefaultsOnEmptyStore(t *testing.T) {
	repo := newTestRepo(t)

	categories, lists, holidays, err := repo.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.DefaultCategories(), categories)
	assert.Empty(t, lists)
	assert.Empty(t, holidays)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	categories := []model.CategoryDef{{ID: "cat_1", Name: "Beach", Icon: "🏖️", Color: "#0EA5E9"}}
	lists := []model.PackingList{{
		ID:   "list_1",
		Name: "Rome Packing List",
		Items: []model.PackingItem{
			{ID: "item_1", Name: "Passport", CategoryID: "cat_1", IsPacked: true, Notes: "side pocket"},
		},
		CreatedAt: time.Now().Truncate(time.Second),
	}}
	holidays := []model.Holiday{{ID: "hol_1", Name: "Rome", ListID: "list_1", Date: &date}}

	require.NoError(t, repo.Save(ctx, categories, lists, holidays))

	gotCategories, gotLists, gotHolidays, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, categories, gotCategories)
	require.Len(t, gotLists, 1)
	assert.Equal(t, lists[0].Items, gotLists[0].Items)
	require.Len(t, gotHolidays, 1)
	assert.Equal(t, "Rome", gotHolidays[0].Name)
	require.NotNil(t, gotHolidays[0].Date)
	assert.True(t, gotHolidays[0].Date.Equal(date))
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	categories := model.DefaultCategories()
	first := []model.PackingList{{ID: "list_1", Name: "First", Items: []model.PackingItem{}}}
	require.NoError(t, repo.Save(ctx, categories, first, []model.Holiday{}))

	second := []model.PackingList{{ID: "list_2", Name: "Second", Items: []model.PackingItem{}}}
	require.NoError(t, repo.Save(ctx, categories, second, []model.Holiday{}))

	_, lists, _, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "list_2", lists[0].ID)
}
