package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packing-planner/internal/gemini"
	"packing-planner/internal/model"
	"packing-planner/internal/repository"
)

func newTestRepo(t *testing.T) *repository.SnapshotRepository {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "planner.db"))
	require.NoError(t, err)
	return repository.NewSnapshotRepository(db)
}

func newTestPlanner(t *testing.T) *PlannerService {
	t.Helper()
	planner, err := NewPlannerService(context.Background(), newTestRepo(t))
	require.NoError(t, err)
	return planner
}

func TestDeleteCategoryReassignsItems(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	categories := planner.Categories()
	essentials := categories[0]
	clothing := categories[1]

	list := planner.CreateList(ctx, "Beach", false, "")
	item, ok := planner.AddItem(ctx, list.ID, "Passport", essentials.ID, "")
	require.True(t, ok)

	tpl := planner.CreateList(ctx, "Master", true, "")
	tplItem, ok := planner.AddItem(ctx, tpl.ID, "Spare passport", essentials.ID, "")
	require.True(t, ok)

	require.True(t, planner.DeleteCategory(ctx, essentials.ID))

	_, exists := planner.CategoryByID(essentials.ID)
	assert.False(t, exists)

	// Reassignment spans every list, templates included.
	got, _ := planner.ListByID(list.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, clothing.ID, got.Items[0].CategoryID)
	assert.Equal(t, item.Name, got.Items[0].Name)

	gotTpl, _ := planner.ListByID(tpl.ID)
	require.Len(t, gotTpl.Items, 1)
	assert.Equal(t, clothing.ID, gotTpl.Items[0].CategoryID)
	assert.Equal(t, tplItem.Name, gotTpl.Items[0].Name)
}

func TestDeleteLastCategoryRefused(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	for len(planner.Categories()) > 1 {
		require.True(t, planner.DeleteCategory(ctx, planner.Categories()[0].ID))
	}

	last := planner.Categories()[0]
	assert.False(t, planner.DeleteCategory(ctx, last.ID))
	require.Len(t, planner.Categories(), 1)
	assert.Equal(t, last.ID, planner.Categories()[0].ID)
}

func TestDeleteUnknownCategoryIsNoop(t *testing.T) {
	planner := newTestPlanner(t)
	before := planner.Categories()
	assert.False(t, planner.DeleteCategory(context.Background(), "nope"))
	assert.Equal(t, before, planner.Categories())
}

func TestSaveCategoryReplacesInPlace(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	second := planner.Categories()[1]
	second.Name = "Outfits"
	planner.SaveCategory(ctx, second)

	categories := planner.Categories()
	assert.Equal(t, "Outfits", categories[1].Name)
	assert.Equal(t, second.ID, categories[1].ID)

	created := planner.SaveCategory(ctx, model.CategoryDef{Name: "Snacks", Icon: "🍫", Color: "#A16207"})
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created, planner.Categories()[len(planner.Categories())-1])
}

func TestCreateListFromTemplateCopiesFresh(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	tpl := planner.CreateList(ctx, "City break", true, "")
	first, _ := planner.AddItem(ctx, tpl.ID, "Passport", "", "")
	second, _ := planner.AddItem(ctx, tpl.ID, "Camera", "", "")
	// Templates are permissive: an image on a template item is allowed,
	// and must still be dropped on copy.
	require.True(t, planner.SetItemImage(ctx, tpl.ID, first.ID, "data:image/jpeg;base64,AAAA"))

	holiday, list := planner.CreateHoliday(ctx, "Rome", tpl.ID, nil)
	assert.Equal(t, "Rome", holiday.Name)
	assert.Equal(t, list.ID, holiday.ListID)
	assert.Equal(t, "Rome Packing List", list.Name)
	assert.False(t, list.IsTemplate)

	require.Len(t, list.Items, 2)
	sourceIDs := map[string]bool{first.ID: true, second.ID: true}
	for _, item := range list.Items {
		assert.False(t, sourceIDs[item.ID], "copied item must get a fresh id")
		assert.False(t, item.IsPacked)
		assert.Empty(t, item.Image)
	}
	assert.Equal(t, "Passport", list.Items[0].Name)
	assert.Equal(t, "Camera", list.Items[1].Name)
}

func TestCreateListWithMissingTemplateStartsEmpty(t *testing.T) {
	planner := newTestPlanner(t)
	list := planner.CreateList(context.Background(), "Trip", false, "no-such-template")
	assert.Empty(t, list.Items)
}

func TestAddItemDefaultsToFirstCategory(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	list := planner.CreateList(ctx, "Trip", false, "")
	item, ok := planner.AddItem(ctx, list.ID, "Socks", "", "")
	require.True(t, ok)
	assert.Equal(t, planner.Categories()[0].ID, item.CategoryID)
	assert.False(t, item.IsPacked)

	_, ok = planner.AddItem(ctx, "missing-list", "Socks", "", "")
	assert.False(t, ok)
}

func TestTogglePackedRoundTrip(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	list := planner.CreateList(ctx, "Trip", false, "")
	item, _ := planner.AddItem(ctx, list.ID, "Charger", "", "cheap one")

	toggled, ok := planner.TogglePacked(ctx, list.ID, item.ID)
	require.True(t, ok)
	assert.True(t, toggled.IsPacked)

	back, ok := planner.TogglePacked(ctx, list.ID, item.ID)
	require.True(t, ok)
	assert.False(t, back.IsPacked)
	back.IsPacked = item.IsPacked
	assert.Equal(t, item, back, "toggle must not touch other fields")
}

func TestTogglePackedOnTemplateIsNoop(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	tpl := planner.CreateList(ctx, "Master", true, "")
	item, _ := planner.AddItem(ctx, tpl.ID, "Towel", "", "")

	_, ok := planner.TogglePacked(ctx, tpl.ID, item.ID)
	assert.False(t, ok)

	got, _ := planner.ListByID(tpl.ID)
	assert.False(t, got.Items[0].IsPacked)
}

func TestDeleteItems(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	list := planner.CreateList(ctx, "Trip", false, "")
	a, _ := planner.AddItem(ctx, list.ID, "A", "", "")
	b, _ := planner.AddItem(ctx, list.ID, "B", "", "")
	c, _ := planner.AddItem(ctx, list.ID, "C", "", "")

	assert.Equal(t, 2, planner.DeleteItems(ctx, list.ID, []string{a.ID, c.ID, "nope"}))

	got, _ := planner.ListByID(list.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, b.ID, got.Items[0].ID)

	assert.False(t, planner.DeleteItem(ctx, list.ID, "nope"))
	assert.True(t, planner.DeleteItem(ctx, list.ID, b.ID))
}

func TestSetItemImage(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	list := planner.CreateList(ctx, "Trip", false, "")
	item, _ := planner.AddItem(ctx, list.ID, "Adapter", "", "")

	require.True(t, planner.SetItemImage(ctx, list.ID, item.ID, "data:image/png;base64,BBBB"))
	got, _ := planner.ListByID(list.ID)
	assert.Equal(t, "data:image/png;base64,BBBB", got.Items[0].Image)

	require.True(t, planner.SetItemImage(ctx, list.ID, item.ID, ""))
	got, _ = planner.ListByID(list.ID)
	assert.Empty(t, got.Items[0].Image)

	assert.False(t, planner.SetItemImage(ctx, list.ID, "nope", "x"))
}

func TestCopyItemToList(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	_, trip := planner.CreateHoliday(ctx, "Rome", "", nil)
	item, _ := planner.AddItem(ctx, trip.ID, "Travel pillow", "", "")
	_, _ = planner.TogglePacked(ctx, trip.ID, item.ID)

	tpl := planner.CreateList(ctx, "Master", true, "")
	copied, ok := planner.CopyItemToList(ctx, trip.ID, item.ID, tpl.ID)
	require.True(t, ok)
	assert.NotEqual(t, item.ID, copied.ID)
	assert.False(t, copied.IsPacked)
	assert.Equal(t, item.Name, copied.Name)

	gotTpl, _ := planner.ListByID(tpl.ID)
	require.Len(t, gotTpl.Items, 1)

	// Source item untouched.
	gotTrip, _ := planner.ListByID(trip.ID)
	require.Len(t, gotTrip.Items, 1)
	assert.True(t, gotTrip.Items[0].IsPacked)
}

func TestDeleteListRemovesHoliday(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	holiday, list := planner.CreateHoliday(ctx, "Rome", "", nil)
	_, ok := planner.HolidayForList(list.ID)
	require.True(t, ok)

	require.True(t, planner.DeleteList(ctx, list.ID))

	_, ok = planner.ListByID(list.ID)
	assert.False(t, ok)
	_, ok = planner.HolidayForList(list.ID)
	assert.False(t, ok)
	for _, h := range planner.Holidays() {
		assert.NotEqual(t, holiday.ID, h.ID)
	}

	assert.False(t, planner.DeleteList(ctx, list.ID))
}

func TestMaterializeSuggestions(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	list := planner.CreateList(ctx, "Japan", true, "")
	added := planner.MaterializeSuggestions(ctx, list.ID, []gemini.Suggestion{
		{Name: "Umbrella", CategoryName: "other"},
		{Name: "Down jacket", CategoryName: "CLOTHING"},
		{Name: "Chopstick case", CategoryName: "Souvenirs"},
		{Name: "   ", CategoryName: "Clothing"},
	})
	assert.Equal(t, 3, added)

	got, _ := planner.ListByID(list.ID)
	require.Len(t, got.Items, 3)
	assert.Equal(t, model.FallbackCategoryID, got.Items[0].CategoryID)
	assert.Equal(t, "cat_clothing", got.Items[1].CategoryID)
	// Unknown category name falls back to the first registered category.
	assert.Equal(t, planner.Categories()[0].ID, got.Items[2].CategoryID)
	for _, item := range got.Items {
		assert.False(t, item.IsPacked)
		assert.Empty(t, item.Image)
	}

	assert.Equal(t, 0, planner.MaterializeSuggestions(ctx, list.ID, nil))
	assert.Equal(t, 0, planner.MaterializeSuggestions(ctx, "missing", []gemini.Suggestion{{Name: "X"}}))
}

func TestStateSurvivesRestart(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	planner, err := NewPlannerService(ctx, repo)
	require.NoError(t, err)

	holiday, list := planner.CreateHoliday(ctx, "Rome", "", nil)
	item, _ := planner.AddItem(ctx, list.ID, "Passport", "", "")
	_, _ = planner.TogglePacked(ctx, list.ID, item.ID)

	reloaded, err := NewPlannerService(ctx, repo)
	require.NoError(t, err)

	gotList, ok := reloaded.ListByID(list.ID)
	require.True(t, ok)
	require.Len(t, gotList.Items, 1)
	assert.True(t, gotList.Items[0].IsPacked)

	gotHoliday, ok := reloaded.HolidayForList(list.ID)
	require.True(t, ok)
	assert.Equal(t, holiday.ID, gotHoliday.ID)
}

// The end-to-end walk from the product spec: create a trip, pack a passport,
// drop its category.
func TestTripLifecycleScenario(t *testing.T) {
	planner := newTestPlanner(t)
	ctx := context.Background()

	essentials := planner.Categories()[0]
	clothing := planner.Categories()[1]

	_, list := planner.CreateHoliday(ctx, "Rome", "", nil)
	assert.Empty(t, list.Items)
	assert.Equal(t, 0, list.Progress())

	item, ok := planner.AddItem(ctx, list.ID, "Passport", essentials.ID, "")
	require.True(t, ok)
	got, _ := planner.ListByID(list.ID)
	require.Len(t, got.Items, 1)
	assert.False(t, got.Items[0].IsPacked)

	_, ok = planner.TogglePacked(ctx, list.ID, item.ID)
	require.True(t, ok)
	got, _ = planner.ListByID(list.ID)
	assert.True(t, got.Items[0].IsPacked)
	assert.Equal(t, 100, got.Progress())

	require.True(t, planner.DeleteCategory(ctx, essentials.ID))
	got, _ = planner.ListByID(list.ID)
	assert.Equal(t, clothing.ID, got.Items[0].CategoryID)
}
