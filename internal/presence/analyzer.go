package presence

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// defaultGapAlertDays is the gap length above which missing evidence becomes
// a high-priority problem. Short gaps are usually non-travel; long ones are
// usually lost stamps or unforwarded bookings.
const defaultGapAlertDays = 3

// Gap confidence bounds. Even a huge gap is never a certainty, and even a
// plausible stay-put gap keeps a residual chance of hidden travel.
const (
	minGapConfidence      = 0.2
	maxGapConfidence      = 0.9
	baselineGapConfidence = 0.5
)

// Analyzer derives gaps, conflicts and recommendations from a reconciled
// calendar. It consumes reconciler output only and never re-reads evidence.
type Analyzer struct {
	gapAlertDays int
}

type AnalyzerOption func(*Analyzer)

// WithGapAlertDays overrides the length at which a gap escalates to a
// high-priority recommendation.
func WithGapAlertDays(days int) AnalyzerOption {
	return func(a *Analyzer) {
		if days > 0 {
			a.gapAlertDays = days
		}
	}
}

func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{gapAlertDays: defaultGapAlertDays}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze inspects a calendar within [from, to]. A zero bound falls back to
// the calendar's own extent; with no calendar and no bounds there is nothing
// to measure and all result sets come back empty.
func (a *Analyzer) Analyze(days []PresenceDay, from, to time.Time) Insights {
	insights := Insights{
		Gaps:            []Gap{},
		Conflicts:       []ConflictNote{},
		Recommendations: []Recommendation{},
	}
	for _, d := range days {
		insights.Conflicts = append(insights.Conflicts, d.Conflicts...)
	}

	insights.Gaps = a.findGaps(days, from, to)

	for _, g := range insights.Gaps {
		insights.Recommendations = append(insights.Recommendations, a.gapRecommendation(g))
	}
	for _, c := range insights.Conflicts {
		insights.Recommendations = append(insights.Recommendations, conflictRecommendation(c))
	}
	sortRecommendations(insights.Recommendations)
	return insights
}

// findGaps returns the maximal runs of dates inside the window that have no
// presence day, oldest first.
func (a *Analyzer) findGaps(days []PresenceDay, from, to time.Time) []Gap {
	start, end, ok := analysisWindow(days, from, to)
	if !ok {
		return []Gap{}
	}

	byDate := make(map[time.Time]PresenceDay, len(days))
	for _, d := range days {
		byDate[midnight(d.Date)] = d
	}
	typical := typicalStays(days)

	gaps := []Gap{}
	var runStart time.Time
	inRun := false
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, 1) {
		if _, present := byDate[cursor]; present {
			if inRun {
				gaps = append(gaps, a.buildGap(runStart, cursor.AddDate(0, 0, -1), byDate, typical))
				inRun = false
			}
			continue
		}
		if !inRun {
			runStart = cursor
			inRun = true
		}
	}
	if inRun {
		gaps = append(gaps, a.buildGap(runStart, end, byDate, typical))
	}
	return gaps
}

func (a *Analyzer) buildGap(start, end time.Time, byDate map[time.Time]PresenceDay, typical map[string]int) Gap {
	length := int(end.Sub(start).Hours()/24) + 1
	return Gap{
		StartDate:  start,
		EndDate:    end,
		LengthDays: length,
		Confidence: gapConfidence(start, end, length, byDate, typical),
	}
}

// gapConfidence estimates how likely a gap hides real travel.
//
// Without presence on both flanks there is nothing to reason from, so the
// estimate stays at the baseline. When both flanks show the same country and
// the gap fits inside that country's longest observed stay, the user most
// plausibly never moved. Otherwise suspicion grows with how far the gap
// exceeds the flanking countries' typical stay.
func gapConfidence(start, end time.Time, length int, byDate map[time.Time]PresenceDay, typical map[string]int) float64 {
	before, hasBefore := byDate[start.AddDate(0, 0, -1)]
	after, hasAfter := byDate[end.AddDate(0, 0, 1)]
	if !hasBefore || !hasAfter {
		return baselineGapConfidence
	}

	if before.Country == after.Country && length <= typical[before.Country] {
		return minGapConfidence
	}

	longest := typical[before.Country]
	if typical[after.Country] > longest {
		longest = typical[after.Country]
	}
	if longest < 1 {
		longest = 1
	}
	ratio := float64(length) / float64(longest)
	return clamp(baselineGapConfidence+0.2*(ratio-1), minGapConfidence, maxGapConfidence)
}

// typicalStays measures, per country, the longest run of consecutive
// presence days in the calendar.
func typicalStays(days []PresenceDay) map[string]int {
	typical := make(map[string]int)
	runLength := 0
	for i, d := range days {
		if i > 0 && d.Country == days[i-1].Country && midnight(d.Date).Equal(midnight(days[i-1].Date).AddDate(0, 0, 1)) {
			runLength++
		} else {
			runLength = 1
		}
		if runLength > typical[d.Country] {
			typical[d.Country] = runLength
		}
	}
	return typical
}

func (a *Analyzer) gapRecommendation(g Gap) Recommendation {
	priority := PriorityLow
	switch {
	case g.LengthDays > a.gapAlertDays:
		priority = PriorityHigh
	case g.LengthDays >= 2:
		priority = PriorityMedium
	}
	start, end := g.StartDate, g.EndDate
	return Recommendation{
		Priority: priority,
		Kind:     RecommendUploadEvidence,
		Message: fmt.Sprintf("no evidence for %d day(s) between %s and %s; upload passport stamps or forward booking confirmations for this period",
			g.LengthDays, start.Format("2006-01-02"), end.Format("2006-01-02")),
		StartDate: &start,
		EndDate:   &end,
	}
}

func conflictRecommendation(c ConflictNote) Recommendation {
	countries := make([]string, 0, len(c.CompetingCountries))
	for _, claim := range c.CompetingCountries {
		countries = append(countries, claim.Country)
	}
	date := c.Date
	return Recommendation{
		Priority: RecommendationPriority(c.Severity),
		Kind:     RecommendResolveConflict,
		Message: fmt.Sprintf("sources disagree about %s (%s); confirm or dispute the evidence for that day",
			date.Format("2006-01-02"), strings.Join(countries, ", ")),
		StartDate: &date,
		EndDate:   &date,
	}
}

// sortRecommendations puts the most urgent items first, then orders
// chronologically within each priority tier.
func sortRecommendations(recs []Recommendation) {
	rank := map[RecommendationPriority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}
	sort.SliceStable(recs, func(i, j int) bool {
		if rank[recs[i].Priority] != rank[recs[j].Priority] {
			return rank[recs[i].Priority] < rank[recs[j].Priority]
		}
		si, sj := recs[i].StartDate, recs[j].StartDate
		if si != nil && sj != nil && !si.Equal(*sj) {
			return si.Before(*sj)
		}
		return recs[i].Kind < recs[j].Kind
	})
}

// analysisWindow resolves the gap-search bounds. Explicit bounds win; missing
// ones fall back to the calendar's extent.
func analysisWindow(days []PresenceDay, from, to time.Time) (time.Time, time.Time, bool) {
	start, end := midnight(from), midnight(to)
	if from.IsZero() {
		if len(days) == 0 {
			return time.Time{}, time.Time{}, false
		}
		start = midnight(days[0].Date)
	}
	if to.IsZero() {
		if len(days) == 0 {
			return time.Time{}, time.Time{}, false
		}
		end = midnight(days[len(days)-1].Date)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
