package canvas

import (
	"sort"
	"time"
)

// DashboardWindow is the trailing window the analytics surface reports over.
const DashboardWindow = 7 * 24 * time.Hour

// DayCount is the number of placements created on one calendar day (UTC).
type DayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// DashboardStats is the payload of the dashboard aggregate endpoint.
type DashboardStats struct {
	// DonutByIcon counts live placements in the window grouped by icon
	// token; placements without a resolved icon are grouped under their
	// category instead.
	DonutByIcon map[string]int `json:"donut_by_icon"`
	// PerDay counts live placements in the window per UTC day, oldest first.
	PerDay []DayCount `json:"per_day"`
	// Last30 is the 30 most recent live placements, newest first.
	Last30 []*Placement `json:"last_30"`
}

// BuildDashboardStats computes dashboard aggregates from live placements.
// The window is trailing, ending at now.
func BuildDashboardStats(placements []*Placement, now time.Time, window time.Duration) DashboardStats {
	stats := DashboardStats{
		DonutByIcon: make(map[string]int),
		Last30:      make([]*Placement, 0, 30),
	}
	cutoff := now.Add(-window)

	perDay := make(map[string]int)
	recent := make([]*Placement, 0, len(placements))
	for _, p := range placements {
		if p.Deleted {
			continue
		}
		recent = append(recent, p)
		if p.CreatedAt.Before(cutoff) {
			continue
		}
		key := p.Icon
		if key == "" {
			key = p.Category
		}
		stats.DonutByIcon[key]++
		perDay[p.CreatedAt.UTC().Format("2006-01-02")]++
	}

	days := make([]string, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}
	sort.Strings(days)
	stats.PerDay = make([]DayCount, 0, len(days))
	for _, day := range days {
		stats.PerDay = append(stats.PerDay, DayCount{Day: day, Count: perDay[day]})
	}

	sort.Slice(recent, func(i, j int) bool {
		if !recent[i].CreatedAt.Equal(recent[j].CreatedAt) {
			return recent[i].CreatedAt.After(recent[j].CreatedAt)
		}
		return recent[i].ID < recent[j].ID
	})
	if len(recent) > 30 {
		recent = recent[:30]
	}
	stats.Last30 = recent
	return stats
}
