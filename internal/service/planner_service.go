package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"packing-planner/internal/gemini"
	"packing-planner/internal/model"
	"packing-planner/internal/repository"
)

// PlannerService owns the three top-level collections (categories, lists,
// holidays) and every mutation on them. All mutations are serialized behind
// one mutex; each successful transition is mirrored to durable storage as a
// full snapshot. A failed write is logged and otherwise unreported.
type PlannerService struct {
	repo *repository.SnapshotRepository

	mu         sync.Mutex
	categories []model.CategoryDef
	lists      []model.PackingList
	holidays   []model.Holiday
}

// NewPlannerService hydrates state from storage.
func NewPlannerService(ctx context.Context, repo *repository.SnapshotRepository) (*PlannerService, error) {
	categories, lists, holidays, err := repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &PlannerService{
		repo:       repo,
		categories: categories,
		lists:      lists,
		holidays:   holidays,
	}, nil
}

// persistLocked writes the current snapshot. Callers hold s.mu.
func (s *PlannerService) persistLocked(ctx context.Context) {
	if err := s.repo.Save(ctx, s.categories, s.lists, s.holidays); err != nil {
		log.Printf("persist state: %v", err)
	}
}

func newID() string {
	return uuid.New().String()
}

// --- Category registry ---

// Categories returns the registry in display (insertion) order.
func (s *PlannerService) Categories() []model.CategoryDef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CategoryDef, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *PlannerService) CategoryByID(id string) (model.CategoryDef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cat := range s.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return model.CategoryDef{}, false
}

// CategoryNames returns the live category names in registry order.
func (s *PlannerService) CategoryNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.categories))
	for i, cat := range s.categories {
		names[i] = cat.Name
	}
	return names
}

// SaveCategory creates a category or, when the id already exists, replaces
// it in place preserving its position. A missing id is minted.
func (s *PlannerService) SaveCategory(ctx context.Context, cat model.CategoryDef) model.CategoryDef {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cat.ID == "" {
		cat.ID = newID()
	}
	replaced := false
	for i := range s.categories {
		if s.categories[i].ID == cat.ID {
			s.categories[i] = cat
			replaced = true
			break
		}
	}
	if !replaced {
		s.categories = append(s.categories, cat)
	}
	s.persistLocked(ctx)
	return cat
}

// DeleteCategory removes a category and reassigns every item referencing it,
// across every list, to the first remaining category. Deleting the last
// category is refused. Removal and reassignment happen as one transition.
func (s *PlannerService) DeleteCategory(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.categories) <= 1 {
		return false
	}

	idx := -1
	for i, cat := range s.categories {
		if cat.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	s.categories = append(s.categories[:idx], s.categories[idx+1:]...)

	fallbackID := model.FallbackCategoryID
	if len(s.categories) > 0 {
		fallbackID = s.categories[0].ID
	}
	for li := range s.lists {
		for ii := range s.lists[li].Items {
			if s.lists[li].Items[ii].CategoryID == id {
				s.lists[li].Items[ii].CategoryID = fallbackID
			}
		}
	}

	s.persistLocked(ctx)
	return true
}

// --- List & item store ---

// Lists returns every list, templates and trip lists intermixed.
func (s *PlannerService) Lists() []model.PackingList {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PackingList, 0, len(s.lists))
	for i := range s.lists {
		out = append(out, cloneList(s.lists[i]))
	}
	return out
}

// Templates returns the reusable master lists.
func (s *PlannerService) Templates() []model.PackingList {
	return s.filterLists(true)
}

// TripLists returns the non-template lists.
func (s *PlannerService) TripLists() []model.PackingList {
	return s.filterLists(false)
}

func (s *PlannerService) filterLists(template bool) []model.PackingList {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PackingList
	for i := range s.lists {
		if s.lists[i].IsTemplate == template {
			out = append(out, cloneList(s.lists[i]))
		}
	}
	return out
}

func (s *PlannerService) ListByID(id string) (model.PackingList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if list := s.findListLocked(id); list != nil {
		return cloneList(*list), true
	}
	return model.PackingList{}, false
}

// CreateList allocates a fresh list. When sourceTemplateID resolves, its
// items are deep-copied with fresh ids, unpacked, and without images;
// otherwise the list starts empty. New lists go to the front.
func (s *PlannerService) CreateList(ctx context.Context, name string, isTemplate bool, sourceTemplateID string) model.PackingList {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := model.PackingList{
		ID:         newID(),
		Name:       name,
		Items:      []model.PackingItem{},
		IsTemplate: isTemplate,
		CreatedAt:  time.Now(),
	}
	if sourceTemplateID != "" {
		if src := s.findListLocked(sourceTemplateID); src != nil {
			list.Items = copyTemplateItems(src.Items)
		}
	}

	s.lists = append([]model.PackingList{list}, s.lists...)
	s.persistLocked(ctx)
	return cloneList(list)
}

// AddItem appends a new unpacked item. An empty categoryID falls back to the
// first registered category.
func (s *PlannerService) AddItem(ctx context.Context, listID, name, categoryID, notes string) (model.PackingItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.findListLocked(listID)
	if list == nil {
		return model.PackingItem{}, false
	}
	if categoryID == "" {
		categoryID = s.defaultCategoryIDLocked()
	}
	item := model.PackingItem{
		ID:         newID(),
		Name:       name,
		CategoryID: categoryID,
		Notes:      notes,
	}
	list.Items = append(list.Items, item)
	s.persistLocked(ctx)
	return item, true
}

// CopyItemToList clones an item into another list with a fresh id and
// unpacked state. Used to promote a one-off trip item back into a template.
func (s *PlannerService) CopyItemToList(ctx context.Context, sourceListID, itemID, targetListID string) (model.PackingItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := s.findListLocked(sourceListID)
	target := s.findListLocked(targetListID)
	if source == nil || target == nil {
		return model.PackingItem{}, false
	}
	for _, item := range source.Items {
		if item.ID == itemID {
			clone := item
			clone.ID = newID()
			clone.IsPacked = false
			target.Items = append(target.Items, clone)
			s.persistLocked(ctx)
			return clone, true
		}
	}
	return model.PackingItem{}, false
}

// TogglePacked flips an item's packed flag. Templates don't track packed
// state, so toggling on a template is a no-op.
func (s *PlannerService) TogglePacked(ctx context.Context, listID, itemID string) (model.PackingItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.findListLocked(listID)
	if list == nil || list.IsTemplate {
		return model.PackingItem{}, false
	}
	for i := range list.Items {
		if list.Items[i].ID == itemID {
			list.Items[i].IsPacked = !list.Items[i].IsPacked
			s.persistLocked(ctx)
			return list.Items[i], true
		}
	}
	return model.PackingItem{}, false
}

// DeleteItem removes one item from a list.
func (s *PlannerService) DeleteItem(ctx context.Context, listID, itemID string) bool {
	return s.DeleteItems(ctx, listID, []string{itemID}) > 0
}

// DeleteItems removes all matching items from one list and reports how many
// were removed.
func (s *PlannerService) DeleteItems(ctx context.Context, listID string, itemIDs []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.findListLocked(listID)
	if list == nil || len(itemIDs) == 0 {
		return 0
	}
	doomed := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		doomed[id] = true
	}
	kept := list.Items[:0]
	removed := 0
	for _, item := range list.Items {
		if doomed[item.ID] {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	if removed == 0 {
		return 0
	}
	list.Items = kept
	s.persistLocked(ctx)
	return removed
}

// SetItemImage attaches an image payload (a data URI) to an item, or clears
// it when image is empty.
func (s *PlannerService) SetItemImage(ctx context.Context, listID, itemID, image string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.findListLocked(listID)
	if list == nil {
		return false
	}
	for i := range list.Items {
		if list.Items[i].ID == itemID {
			list.Items[i].Image = image
			s.persistLocked(ctx)
			return true
		}
	}
	return false
}

// DeleteList removes a list and, transitively, any holiday referencing it.
func (s *PlannerService) DeleteList(ctx context.Context, listID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.lists {
		if s.lists[i].ID == listID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	s.lists = append(s.lists[:idx], s.lists[idx+1:]...)
	s.removeHolidaysLocked(listID)
	s.persistLocked(ctx)
	return true
}

// --- Holiday registry ---

func (s *PlannerService) Holidays() []model.Holiday {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Holiday, len(s.holidays))
	copy(out, s.holidays)
	return out
}

func (s *PlannerService) HolidayForList(listID string) (model.Holiday, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holidays {
		if h.ListID == listID {
			return h, true
		}
	}
	return model.Holiday{}, false
}

// CreateHoliday allocates a trip list (optionally seeded from a template)
// and the holiday pointing at it as one transaction.
func (s *PlannerService) CreateHoliday(ctx context.Context, name, templateID string, date *time.Time) (model.Holiday, model.PackingList) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := model.PackingList{
		ID:         newID(),
		Name:       name + " Packing List",
		Items:      []model.PackingItem{},
		IsTemplate: false,
		CreatedAt:  time.Now(),
	}
	if templateID != "" {
		if src := s.findListLocked(templateID); src != nil {
			list.Items = copyTemplateItems(src.Items)
		}
	}
	holiday := model.Holiday{
		ID:     newID(),
		Name:   name,
		ListID: list.ID,
		Date:   date,
	}

	s.lists = append([]model.PackingList{list}, s.lists...)
	s.holidays = append([]model.Holiday{holiday}, s.holidays...)
	s.persistLocked(ctx)
	return holiday, cloneList(list)
}

// DeleteHoliday removes every holiday referencing the list. The list itself
// stays; use DeleteList to drop both.
func (s *PlannerService) DeleteHoliday(ctx context.Context, listID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.removeHolidaysLocked(listID)
	if removed > 0 {
		s.persistLocked(ctx)
	}
	return removed
}

// SetHolidayDate sets or clears the trip date of the holiday owning listID.
func (s *PlannerService) SetHolidayDate(ctx context.Context, listID string, date *time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.holidays {
		if s.holidays[i].ListID == listID {
			s.holidays[i].Date = date
			s.persistLocked(ctx)
			return true
		}
	}
	return false
}

// MaterializeSuggestions turns suggested (name, categoryName) pairs into
// fresh unpacked items on the given list. Category names match
// case-insensitively; misses fall back to the first registered category.
func (s *PlannerService) MaterializeSuggestions(ctx context.Context, listID string, suggestions []gemini.Suggestion) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.findListLocked(listID)
	if list == nil || len(suggestions) == 0 {
		return 0
	}

	byName := make(map[string]string, len(s.categories))
	for _, cat := range s.categories {
		byName[strings.ToLower(cat.Name)] = cat.ID
	}
	fallbackID := s.defaultCategoryIDLocked()

	added := 0
	for _, sg := range suggestions {
		if strings.TrimSpace(sg.Name) == "" {
			continue
		}
		categoryID, ok := byName[strings.ToLower(strings.TrimSpace(sg.CategoryName))]
		if !ok {
			categoryID = fallbackID
		}
		list.Items = append(list.Items, model.PackingItem{
			ID:         newID(),
			Name:       strings.TrimSpace(sg.Name),
			CategoryID: categoryID,
		})
		added++
	}
	if added > 0 {
		s.persistLocked(ctx)
	}
	return added
}

// --- helpers ---

func (s *PlannerService) findListLocked(id string) *model.PackingList {
	for i := range s.lists {
		if s.lists[i].ID == id {
			return &s.lists[i]
		}
	}
	return nil
}

func (s *PlannerService) defaultCategoryIDLocked() string {
	if len(s.categories) > 0 {
		return s.categories[0].ID
	}
	return model.FallbackCategoryID
}

func (s *PlannerService) removeHolidaysLocked(listID string) int {
	kept := s.holidays[:0]
	removed := 0
	for _, h := range s.holidays {
		if h.ListID == listID {
			removed++
			continue
		}
		kept = append(kept, h)
	}
	s.holidays = kept
	return removed
}

// copyTemplateItems deep-copies items for a template-seeded list: fresh ids,
// unpacked, no image, regardless of the source item's state.
func copyTemplateItems(items []model.PackingItem) []model.PackingItem {
	out := make([]model.PackingItem, len(items))
	for i, item := range items {
		item.ID = newID()
		item.IsPacked = false
		item.Image = ""
		out[i] = item
	}
	return out
}

func cloneList(list model.PackingList) model.PackingList {
	items := make([]model.PackingItem, len(list.Items))
	copy(items, list.Items)
	list.Items = items
	return list
}
