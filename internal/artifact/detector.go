package artifact

import (
	"sort"
	"strings"
)

// Pairwise similarity weights. Exact-name and containment are mutually
// exclusive contributions; size and checksum share one slot.
const (
	exactNameWeight      = 0.5
	containmentWeight    = 0.3
	sizeOrChecksumWeight = 0.5
)

// Detector scores descriptor pairs for likely redundancy and unions the
// qualifying pairs into groups. It is a heuristic pre-filter: false
// negatives just flow on to reconciliation, where corroboration math stays
// safe; false positives are surfaced for reversible action only.
type Detector struct {
	identicalThreshold float64
	similarThreshold   float64
}

// NewDetector constructs a Detector. Scores strictly above
// identicalThreshold classify as identical; scores at or above
// similarThreshold classify as similar. The at-or-above comparison matters:
// the containment+size combination sums to 0.8 only up to float64 rounding.
func NewDetector(identicalThreshold, similarThreshold float64) *Detector {
	return &Detector{
		identicalThreshold: identicalThreshold,
		similarThreshold:   similarThreshold,
	}
}

type scoredPair struct {
	left  int
	match Match
}

// Detect scores every pair and returns the connected groups of qualifying
// pairs, ordered by first member id. Items that match nothing are omitted.
func (d *Detector) Detect(items []Descriptor) []DuplicateGroup {
	if len(items) < 2 {
		return nil
	}

	parent := make([]int, len(items))
	for i := range parent {
		parent[i] = i
	}

	var pairs []scoredPair
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			score := d.score(items[i], items[j])
			kind, ok := d.classify(score)
			if !ok {
				continue
			}
			leftID, rightID := items[i].ID, items[j].ID
			if leftID > rightID {
				leftID, rightID = rightID, leftID
			}
			pairs = append(pairs, scoredPair{
				left:  i,
				match: Match{LeftID: leftID, RightID: rightID, Score: score, Kind: kind},
			})
			union(parent, i, j)
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	groupsByRoot := map[int]*DuplicateGroup{}
	for _, pair := range pairs {
		root := find(parent, pair.left)
		group, ok := groupsByRoot[root]
		if !ok {
			group = &DuplicateGroup{Kind: MatchSimilar}
			groupsByRoot[root] = group
		}
		group.Matches = append(group.Matches, pair.match)
		if pair.match.Score > group.Score {
			group.Score = pair.match.Score
		}
		// A group takes the strongest classification among its pairs.
		if pair.match.Kind == MatchIdentical {
			group.Kind = MatchIdentical
		}
	}
	for i := range items {
		root := find(parent, i)
		if group, ok := groupsByRoot[root]; ok {
			group.ItemIDs = append(group.ItemIDs, items[i].ID)
		}
	}

	groups := make([]DuplicateGroup, 0, len(groupsByRoot))
	for _, group := range groupsByRoot {
		sort.Strings(group.ItemIDs)
		sort.Slice(group.Matches, func(a, b int) bool {
			if group.Matches[a].LeftID != group.Matches[b].LeftID {
				return group.Matches[a].LeftID < group.Matches[b].LeftID
			}
			return group.Matches[a].RightID < group.Matches[b].RightID
		})
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(a, b int) bool {
		return groups[a].ItemIDs[0] < groups[b].ItemIDs[0]
	})
	return groups
}

// score computes the weighted pairwise similarity, capped at 1.0.
func (d *Detector) score(a, b Descriptor) float64 {
	var score float64

	nameA := normalizeFilename(a.Filename)
	nameB := normalizeFilename(b.Filename)
	switch {
	case nameA != "" && nameA == nameB:
		score += exactNameWeight
	case nameA != "" && nameB != "" && (strings.Contains(nameA, nameB) || strings.Contains(nameB, nameA)):
		score += containmentWeight
	}

	sizeMatch := a.SizeBytes > 0 && a.SizeBytes == b.SizeBytes
	checksumMatch := a.Checksum != "" && a.Checksum == b.Checksum
	if sizeMatch || checksumMatch {
		score += sizeOrChecksumWeight
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (d *Detector) classify(score float64) (MatchKind, bool) {
	switch {
	case score > d.identicalThreshold:
		return MatchIdentical, true
	case score >= d.similarThreshold:
		return MatchSimilar, true
	default:
		return "", false
	}
}

func normalizeFilename(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func find(parent []int, i int) int {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}

func union(parent []int, a, b int) {
	rootA, rootB := find(parent, a), find(parent, b)
	if rootA != rootB {
		parent[rootB] = rootA
	}
}
