package presence

import (
	"fmt"
	"sort"
	"time"

	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

// downWeightFactor halves a record's confidence when its resolved country is
// uncertain or when a dispute marker references it. Applied before the
// noisy-OR combination so a disputed day strictly loses confidence.
const downWeightFactor = 0.5

// Severity thresholds on the combined-confidence gap between the top two
// competing countries for a day.
const (
	highSeverityGap   = 0.1
	mediumSeverityGap = 0.3
)

// Reconciler folds a user's evidence records into one presence claim per
// calendar day. Records that agree on the country reinforce each other;
// records that disagree compete, and the losers are preserved as conflicts.
type Reconciler struct{}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// cluster is all of one day's evidence for a single country.
type cluster struct {
	country  string
	combined float64
	records  []weightedRecord
}

type weightedRecord struct {
	record    evidence.EvidenceRecord
	effective float64
}

// Reconcile builds the presence calendar from the given evidence set. The
// result has exactly one entry per date that carries evidence and is sorted
// date ascending. Input order never affects the output.
//
// Records with a zero date or empty country indicate corrupted storage, not
// bad user input; reconciliation aborts rather than guessing.
func (rc *Reconciler) Reconcile(records []evidence.EvidenceRecord) ([]PresenceDay, error) {
	for _, r := range records {
		if r.Date.IsZero() {
			return nil, dErrors.New(dErrors.CodeContractViolation,
				fmt.Sprintf("evidence record %s has a zero date", r.ID))
		}
		if r.Country == "" {
			return nil, dErrors.New(dErrors.CodeContractViolation,
				fmt.Sprintf("evidence record %s has an empty country", r.ID))
		}
	}

	disputed := disputedRecordIDs(records)

	byDay := make(map[time.Time][]evidence.EvidenceRecord)
	for _, r := range records {
		if isDisputeMarker(r) {
			continue
		}
		day := r.Day()
		byDay[day] = append(byDay[day], r)
	}

	days := make([]PresenceDay, 0, len(byDay))
	for day, dayRecords := range byDay {
		days = append(days, rc.reconcileDay(day, dayRecords, disputed))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

// isDisputeMarker reports whether a record is a dispute marker rather than a
// presence claim: a manual record with zero confidence that references the
// records it contests. Markers carry no presence weight of their own; their
// effect is to halve the confidence of everything they reference.
func isDisputeMarker(r evidence.EvidenceRecord) bool {
	return r.SourceKind == id.SourceManual && r.Confidence == 0 && len(r.EvidenceRefs) > 0
}

func disputedRecordIDs(records []evidence.EvidenceRecord) map[string]bool {
	var disputed map[string]bool
	for _, r := range records {
		if !isDisputeMarker(r) {
			continue
		}
		if disputed == nil {
			disputed = make(map[string]bool)
		}
		for _, ref := range r.EvidenceRefs {
			disputed[ref] = true
		}
	}
	return disputed
}

func (rc *Reconciler) reconcileDay(day time.Time, records []evidence.EvidenceRecord, disputed map[string]bool) PresenceDay {
	clusters := clusterByCountry(records, disputed)
	sortClusters(clusters)
	winner := clusters[0]

	presence := PresenceDay{
		Date:        day,
		Country:     winner.country,
		Confidence:  winner.combined,
		Attribution: attributionFor(winner.records),
		Evidence:    contributingIDs(winner.records),
		Attributes:  mergedAttributes(winner.records),
	}
	if len(clusters) > 1 {
		presence.Conflicts = []ConflictNote{conflictNote(day, clusters)}
	}
	return presence
}

// clusterByCountry groups one day's records by country and combines each
// group's confidences with noisy-OR: combined = 1 - prod(1 - ci). Independent
// corroborating sources push the combined value toward 1 without ever
// reaching it; a single weak source stays weak.
//
// Members are sorted by record ID before combining. Float multiplication is
// not associative, so a fixed order is what makes the combined value exactly
// reproducible for any input permutation.
func clusterByCountry(records []evidence.EvidenceRecord, disputed map[string]bool) []cluster {
	byCountry := make(map[string][]weightedRecord)
	for _, r := range records {
		effective := r.Confidence
		if disputed[r.ID.String()] {
			effective *= downWeightFactor
		}
		if r.LowConfidenceCountry {
			effective *= downWeightFactor
		}
		byCountry[r.Country] = append(byCountry[r.Country], weightedRecord{record: r, effective: effective})
	}

	clusters := make([]cluster, 0, len(byCountry))
	for country, members := range byCountry {
		sort.Slice(members, func(i, j int) bool {
			return members[i].record.ID.String() < members[j].record.ID.String()
		})
		miss := 1.0
		for _, m := range members {
			miss *= 1 - m.effective
		}
		clusters = append(clusters, cluster{country: country, combined: 1 - miss, records: members})
	}
	return clusters
}

// sortClusters orders candidates best first: combined confidence, then the
// strongest source kind present, then the best-evidenced single record, then
// country ascending so equal claims resolve the same way on every run.
func sortClusters(clusters []cluster) {
	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.combined != b.combined {
			return a.combined > b.combined
		}
		if pa, pb := maxPriority(a.records), maxPriority(b.records); pa != pb {
			return pa > pb
		}
		if ra, rb := maxRefs(a.records), maxRefs(b.records); ra != rb {
			return ra > rb
		}
		return a.country < b.country
	})
}

func maxPriority(members []weightedRecord) int {
	best := 0
	for _, m := range members {
		if p := m.record.SourceKind.Priority(); p > best {
			best = p
		}
	}
	return best
}

func maxRefs(members []weightedRecord) int {
	best := 0
	for _, m := range members {
		if n := len(m.record.EvidenceRefs); n > best {
			best = n
		}
	}
	return best
}

func attributionFor(members []weightedRecord) string {
	kinds := make(map[id.SourceKind]bool, len(members))
	for _, m := range members {
		kinds[m.record.SourceKind] = true
	}
	if len(kinds) > 1 {
		return AttributionMerged
	}
	return members[0].record.SourceKind.String()
}

// contributingIDs lists the winning cluster's record IDs, deduplicated and
// sorted. Only the winners are cited; losing claims live in the conflict note.
func contributingIDs(members []weightedRecord) []string {
	seen := make(map[string]bool, len(members))
	ids := make([]string, 0, len(members))
	for _, m := range members {
		s := m.record.ID.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		ids = append(ids, s)
	}
	sort.Strings(ids)
	return ids
}

// mergedAttributes folds the winning records' attributes together. Members
// arrive sorted by record ID and the first writer of a key wins, so merges
// are stable regardless of input order.
func mergedAttributes(members []weightedRecord) map[string]string {
	var merged map[string]string
	for _, m := range members {
		for k, v := range m.record.RawAttributes {
			if merged == nil {
				merged = make(map[string]string)
			}
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	return merged
}

func conflictNote(day time.Time, clusters []cluster) ConflictNote {
	claims := make([]CompetingClaim, 0, len(clusters))
	for _, c := range clusters {
		claims = append(claims, CompetingClaim{
			Country:    c.country,
			Confidence: c.combined,
			SourceKind: strongestKind(c.records),
		})
	}
	return ConflictNote{
		Date:               day,
		CompetingCountries: claims,
		Severity:           severityFor(claims[0].Confidence - claims[1].Confidence),
	}
}

func strongestKind(members []weightedRecord) id.SourceKind {
	best := members[0].record.SourceKind
	for _, m := range members[1:] {
		if m.record.SourceKind.Priority() > best.Priority() {
			best = m.record.SourceKind
		}
	}
	return best
}

// severityFor grades a conflict by how close the race was. A near-tie means
// the data genuinely cannot say where the user was; a wide margin means the
// losing claim is probably noise.
func severityFor(gap float64) ConflictSeverity {
	switch {
	case gap < highSeverityGap:
		return SeverityHigh
	case gap < mediumSeverityGap:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
