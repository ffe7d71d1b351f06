package artifact

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Duplicate Detector Test Suite
// =============================================================================
// Justification for unit tests: the scoring weights interact with float64
// rounding at the similar threshold (0.3+0.5 rounds just below 0.8), so the
// boundary decisions need to be pinned exactly.

type DetectorSuite struct {
	suite.Suite
	detector *Detector
}

func TestDetectorSuite(t *testing.T) {
	suite.Run(t, new(DetectorSuite))
}

func (s *DetectorSuite) SetupTest() {
	s.detector = NewDetector(0.95, 0.8)
}

func (s *DetectorSuite) TestPairScoring() {
	cases := []struct {
		name string
		a    Descriptor
		b    Descriptor
		want float64
	}{
		{
			name: "same name and size caps at one",
			a:    Descriptor{ID: "a", Filename: "passport.jpg", SizeBytes: 2048},
			b:    Descriptor{ID: "b", Filename: "passport.jpg", SizeBytes: 2048},
			want: 1.0,
		},
		{
			name: "same name different size",
			a:    Descriptor{ID: "a", Filename: "passport.jpg", SizeBytes: 2048},
			b:    Descriptor{ID: "b", Filename: "passport.jpg", SizeBytes: 4096},
			want: 0.5,
		},
		{
			name: "containment plus size",
			a:    Descriptor{ID: "a", Filename: "passport.jpg", SizeBytes: 2048},
			b:    Descriptor{ID: "b", Filename: "passport_copy.jpg", SizeBytes: 2048},
			want: 0.3 + 0.5,
		},
		{
			name: "containment only",
			a:    Descriptor{ID: "a", Filename: "stamp.png"},
			b:    Descriptor{ID: "b", Filename: "stamp.png.bak"},
			want: 0.3,
		},
		{
			name: "checksum only",
			a:    Descriptor{ID: "a", Filename: "scan1.pdf", Checksum: "abc123"},
			b:    Descriptor{ID: "b", Filename: "different.pdf", Checksum: "abc123"},
			want: 0.5,
		},
		{
			name: "name comparison is case insensitive",
			a:    Descriptor{ID: "a", Filename: "Passport.JPG", SizeBytes: 100},
			b:    Descriptor{ID: "b", Filename: "passport.jpg", SizeBytes: 100},
			want: 1.0,
		},
		{
			name: "zero sizes never count as a size match",
			a:    Descriptor{ID: "a", Filename: "one.jpg"},
			b:    Descriptor{ID: "b", Filename: "two.jpg"},
			want: 0,
		},
		{
			name: "empty checksums never count as a checksum match",
			a:    Descriptor{ID: "a", Filename: "one.jpg"},
			b:    Descriptor{ID: "b", Filename: "two.jpg", Checksum: ""},
			want: 0,
		},
		{
			name: "empty filenames never contain each other",
			a:    Descriptor{ID: "a", SizeBytes: 500},
			b:    Descriptor{ID: "b", Filename: "visa.png", SizeBytes: 123},
			want: 0,
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.InDelta(tc.want, s.detector.score(tc.a, tc.b), 1e-9)
		})
	}
}

func (s *DetectorSuite) TestClassificationBoundaries() {
	s.Run("capped score is identical", func() {
		kind, ok := s.detector.classify(1.0)
		s.True(ok)
		s.Equal(MatchIdentical, kind)
	})

	s.Run("containment plus size is similar despite float rounding", func() {
		// 0.3 + 0.5 lands a hair under 0.8 in float64.
		kind, ok := s.detector.classify(0.3 + 0.5)
		s.True(ok)
		s.Equal(MatchSimilar, kind)
	})

	s.Run("name only exact is not reported", func() {
		_, ok := s.detector.classify(0.5)
		s.False(ok)
	})

	s.Run("containment only is not reported", func() {
		_, ok := s.detector.classify(0.3)
		s.False(ok)
	})
}

func (s *DetectorSuite) TestDetect() {
	s.Run("identical pair is grouped and classified", func() {
		groups := s.detector.Detect([]Descriptor{
			{ID: "a", Filename: "passport.jpg", SizeBytes: 2048},
			{ID: "b", Filename: "passport.jpg", SizeBytes: 2048},
			{ID: "c", Filename: "unrelated.pdf", SizeBytes: 1},
		})
		s.Require().Len(groups, 1)
		s.Equal(MatchIdentical, groups[0].Kind)
		s.Equal([]string{"a", "b"}, groups[0].ItemIDs)
		s.InDelta(1.0, groups[0].Score, 1e-9)
	})

	s.Run("similar chain unions into one group", func() {
		// a-b share name+size, b-c share containment+size: one component.
		groups := s.detector.Detect([]Descriptor{
			{ID: "a", Filename: "stamp.png", SizeBytes: 700},
			{ID: "b", Filename: "stamp.png", SizeBytes: 700},
			{ID: "c", Filename: "stamp.png.bak", SizeBytes: 700},
		})
		s.Require().Len(groups, 1)
		s.Equal([]string{"a", "b", "c"}, groups[0].ItemIDs)
		s.Equal(MatchIdentical, groups[0].Kind)
		s.Len(groups[0].Matches, 3)
	})

	s.Run("disjoint pairs produce separate groups ordered by first id", func() {
		groups := s.detector.Detect([]Descriptor{
			{ID: "d", Filename: "visa.pdf", Checksum: "x1", SizeBytes: 10},
			{ID: "c", Filename: "visa.pdf", Checksum: "x1", SizeBytes: 10},
			{ID: "b", Filename: "ticket.eml", SizeBytes: 300},
			{ID: "a", Filename: "ticket.eml", SizeBytes: 300},
		})
		s.Require().Len(groups, 2)
		s.Equal([]string{"a", "b"}, groups[0].ItemIDs)
		s.Equal([]string{"c", "d"}, groups[1].ItemIDs)
	})

	s.Run("no qualifying pairs yields nil", func() {
		groups := s.detector.Detect([]Descriptor{
			{ID: "a", Filename: "one.jpg", SizeBytes: 1},
			{ID: "b", Filename: "two.jpg", SizeBytes: 2},
		})
		s.Nil(groups)
	})

	s.Run("fewer than two items yields nil", func() {
		s.Nil(s.detector.Detect(nil))
		s.Nil(s.detector.Detect([]Descriptor{{ID: "a", Filename: "x.jpg"}}))
	})

	s.Run("match ids are normalized left before right", func() {
		groups := s.detector.Detect([]Descriptor{
			{ID: "z", Filename: "scan.jpg", SizeBytes: 42},
			{ID: "a", Filename: "scan.jpg", SizeBytes: 42},
		})
		s.Require().Len(groups, 1)
		s.Require().Len(groups[0].Matches, 1)
		s.Equal("a", groups[0].Matches[0].LeftID)
		s.Equal("z", groups[0].Matches[0].RightID)
	})
}
