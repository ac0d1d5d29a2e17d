package fallback

import (
	"sort"
	"time"

	"crm-ai-workers/internal/models"
)

const (
	// StaleAfter is how long an open lead may go without contact before it
	// counts as stale.
	StaleAfter = 14 * 24 * time.Hour

	topLeadCount   = 3
	staleNameCount = 5
)

// Summarize computes pipeline aggregates from a lead list. It never reads
// anything but its arguments.
func Summarize(leads []models.Lead, now time.Time) models.PipelineStats {
	stats := models.PipelineStats{
		LeadsByStatus:   make(map[models.LeadStatus]int),
		BestContactHour: -1,
	}
	if len(leads) == 0 {
		return stats
	}

	var (
		scoreSum int
		hours    [24]int
		days     [7]int
		active   []models.Lead
		stale    []models.Lead
	)

	for _, l := range leads {
		stats.TotalLeads++
		stats.LeadsByStatus[l.Status]++
		scoreSum += l.Score

		if !l.CreatedAt.IsZero() && now.Sub(l.CreatedAt) <= 7*24*time.Hour && !l.CreatedAt.After(now) {
			stats.NewThisWeek++
		}

		if l.LastContactedAt != nil {
			t := l.LastContactedAt.In(now.Location())
			hours[t.Hour()]++
			days[t.Weekday()]++
			stats.ContactedSamples++
		}

		switch l.Status {
		case models.LeadStatusWon:
			stats.WonLeads++
			stats.WonValue += l.Value
			continue
		case models.LeadStatusLost:
			stats.LostLeads++
			continue
		}

		stats.ActiveLeads++
		stats.PipelineValue += l.Value
		active = append(active, l)

		switch l.Temperature() {
		case "hot":
			stats.HotLeads++
		case "warm":
			stats.WarmLeads++
		default:
			stats.ColdLeads++
		}

		if isStale(l, now) {
			stats.StaleLeads++
			stale = append(stale, l)
		}
	}

	stats.AverageScore = round1(float64(scoreSum) / float64(stats.TotalLeads))
	if closed := stats.WonLeads + stats.LostLeads; closed > 0 {
		stats.ConversionRate = round1(float64(stats.WonLeads) / float64(closed) * 100)
	}

	sort.SliceStable(active, func(i, j int) bool { return active[i].Score > active[j].Score })
	for i := 0; i < len(active) && i < topLeadCount; i++ {
		stats.TopLeads = append(stats.TopLeads, displayName(active[i]))
	}

	sort.SliceStable(stale, func(i, j int) bool { return lastTouch(stale[i]).Before(lastTouch(stale[j])) })
	for i := 0; i < len(stale) && i < staleNameCount; i++ {
		stats.StaleLeadNames = append(stats.StaleLeadNames, displayName(stale[i]))
	}

	if stats.ContactedSamples > 0 {
		stats.BestContactHour = argmax(hours[:])
		stats.BestContactDay = time.Weekday(argmax(days[:])).String()
	}
	return stats
}

func isStale(l models.Lead, now time.Time) bool {
	t := lastTouch(l)
	return !t.IsZero() && now.Sub(t) > StaleAfter
}

func lastTouch(l models.Lead) time.Time {
	if l.LastContactedAt != nil {
		return *l.LastContactedAt
	}
	return l.CreatedAt
}

func displayName(l models.Lead) string {
	name := l.FullName()
	if name == "" {
		name = l.Company
	} else if l.Company != "" {
		name += " (" + l.Company + ")"
	}
	if name == "" {
		name = l.ID
	}
	return name
}

// argmax returns the lowest index holding the largest count.
func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
