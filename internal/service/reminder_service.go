package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
)

// ReminderService builds human-readable packing summaries for scheduled
// notifications.
type ReminderService struct {
	planner *PlannerService
}

func NewReminderService(planner *PlannerService) *ReminderService {
	return &ReminderService{planner: planner}
}

type tripStatus struct {
	name     string
	date     *time.Time
	progress int
	left     int
}

// TripSummary reports every trip that still has something to pack, dated
// trips first (soonest departure on top). The second return is false when
// there is nothing worth sending.
func (s *ReminderService) TripSummary(now time.Time) (string, bool) {
	var trips []tripStatus
	for _, holiday := range s.planner.Holidays() {
		list, ok := s.planner.ListByID(holiday.ListID)
		if !ok {
			continue
		}
		left := len(list.Items) - list.PackedCount()
		if left == 0 && len(list.Items) > 0 {
			continue
		}
		trips = append(trips, tripStatus{
			name:     holiday.Name,
			date:     holiday.Date,
			progress: list.Progress(),
			left:     left,
		})
	}
	if len(trips) == 0 {
		return "", false
	}

	sort.SliceStable(trips, func(i, j int) bool {
		switch {
		case trips[i].date == nil && trips[j].date == nil:
			return false
		case trips[i].date == nil:
			return false
		case trips[j].date == nil:
			return true
		default:
			return trips[i].date.Before(*trips[j].date)
		}
	})

	var builder strings.Builder
	builder.WriteString("🧳 <b>Packing report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	for _, trip := range trips {
		builder.WriteString(formatTripStatus(trip, now))
	}
	builder.WriteString("\nOpen a trip with /trips to keep packing.")

	return strings.TrimSpace(builder.String()), true
}

func formatTripStatus(trip tripStatus, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if trip.date != nil {
		d := trip.date.In(now.Location())
		switch {
		case now.After(d.Add(24 * time.Hour)):
			icon = "✈️"
		case d.Sub(now) <= 48*time.Hour:
			icon = "⚠️"
		case d.Sub(now) <= 7*24*time.Hour:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s <b>%s</b> — %d%% packed", icon, html.EscapeString(strings.TrimSpace(trip.name)), trip.progress))
	if trip.left > 0 {
		sb.WriteString(fmt.Sprintf(", %d to go", trip.left))
	} else {
		sb.WriteString(", list still empty")
	}
	sb.WriteByte('\n')

	if trip.date != nil {
		d := trip.date.In(now.Location())
		if now.After(d.Add(24 * time.Hour)) {
			sb.WriteString(fmt.Sprintf("   🗓 departed %s\n", d.Format("2006-01-02")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("   🗓 %s · ≈%d day(s) left\n", d.Format("2006-01-02"), daysLeft))
		}
	}

	return sb.String()
}
