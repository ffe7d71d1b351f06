package report

import (
	"sort"
	"strings"
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/presence"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// ComposeParams carries everything Compose needs besides the calendar itself.
// Raw echoes the caller's original request so the composed report can be
// regenerated later.
type ComposeParams struct {
	Type        Type
	Title       string
	Description string
	Range       DateRange
	Countries   []string
	Raw         Parameters
}

// Composer turns a reconciled presence calendar into a typed report payload.
// Composition is pure: the same calendar and parameters always produce the
// same report apart from the generation timestamp.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// Compose builds the report body for params.Type. The country filter applies
// here, case-insensitively, so the stored report reflects exactly the days it
// summarizes. The input slice is never mutated.
func (c *Composer) Compose(days []presence.PresenceDay, params ComposeParams, generatedAt time.Time) (Report, error) {
	if !knownTypes[params.Type] {
		return Report{}, dErrors.New(dErrors.CodeValidation,
			"report_type must be one of presence, travel_summary, tax_residency, visa_compliance, custom")
	}

	selected := filterDays(days, params.Countries)
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Date.Before(selected[j].Date)
	})

	r := Report{
		Type:          params.Type,
		Title:         params.Title,
		Description:   params.Description,
		DateRange:     params.Range,
		Countries:     normalizeCountries(params.Countries),
		GeneratedAt:   generatedAt.UTC(),
		Status:        StatusCompleted,
		Disclaimers:   disclaimersFor(params.Type),
		RawParameters: params.Raw,
	}

	if params.Type.usesTravelShape() {
		r.Summary.Travel, r.Detail.Travel = composeTravel(selected)
	} else {
		r.Summary.Presence, r.Detail.Presence = composePresence(selected)
	}
	return r, nil
}

func composePresence(days []presence.PresenceDay) (*PresenceSummary, *PresenceDetail) {
	totals := make(map[string]int, 8)
	entries := make([]PresenceEntry, 0, len(days))
	for _, day := range days {
		totals[day.Country]++
		entries = append(entries, PresenceEntry{
			Date:        day.Date.Format(dateLayout),
			Country:     day.Country,
			Confidence:  day.Confidence,
			Attribution: day.Attribution,
			City:        day.Attributes["city"],
			Purpose:     day.Attributes["purpose"],
		})
	}
	summary := &PresenceSummary{
		TotalCountries: len(totals),
		TotalDays:      len(days),
		TotalEntries:   len(entries),
	}
	detail := &PresenceDetail{
		CountryTotals: totals,
		Entries:       entries,
	}
	return summary, detail
}

func composeTravel(days []presence.PresenceDay) (*TravelSummary, *TravelDetail) {
	totals := make(map[string]int, 8)
	byYear := make(map[int]int, 4)
	timeline := make([]TravelEntry, 0, len(days))
	for _, day := range days {
		totals[day.Country]++
		byYear[day.Date.Year()]++
		timeline = append(timeline, TravelEntry{
			Date:    day.Date.Format(dateLayout),
			Country: day.Country,
		})
	}
	summary := &TravelSummary{
		UniqueCountries: len(totals),
		TotalDays:       len(days),
	}
	if len(days) > 0 {
		summary.YearRange = &YearRange{
			Start: days[0].Date.Year(),
			End:   days[len(days)-1].Date.Year(),
		}
	}
	detail := &TravelDetail{
		ByYear:    byYear,
		ByCountry: rankCountries(totals),
		Timeline:  timeline,
	}
	return summary, detail
}

// filterDays returns the days matching the country filter, or a copy of all
// days when the filter is empty. Matching ignores case and surrounding
// whitespace in the filter values.
func filterDays(days []presence.PresenceDay, countries []string) []presence.PresenceDay {
	allowed := countrySet(countries)
	if len(allowed) == 0 {
		out := make([]presence.PresenceDay, len(days))
		copy(out, days)
		return out
	}
	out := make([]presence.PresenceDay, 0, len(days))
	for _, day := range days {
		if allowed[strings.ToUpper(day.Country)] {
			out = append(out, day)
		}
	}
	return out
}

func countrySet(countries []string) map[string]bool {
	set := make(map[string]bool, len(countries))
	for _, c := range countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			set[c] = true
		}
	}
	return set
}

// normalizeCountries uppercases and dedupes the filter, preserving the
// caller's order. An effectively empty filter normalizes to nil so unfiltered
// reports omit the field entirely.
func normalizeCountries(countries []string) []string {
	seen := make(map[string]bool, len(countries))
	var out []string
	for _, c := range countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
