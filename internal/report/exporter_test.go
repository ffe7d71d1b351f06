package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/eshbtc/travelcheck-sub000/internal/presence"
	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

// =============================================================================
// Report Exporter Test Suite
// =============================================================================
// Justification for unit tests: exports leave the system and get opened by
// other software, so the encodings (JSON round-trip, CSV shape, PDF header)
// and the derived filenames are contract, not presentation.

type ExporterSuite struct {
	suite.Suite
	exporter *Exporter
}

func TestExporterSuite(t *testing.T) {
	suite.Run(t, new(ExporterSuite))
}

func (s *ExporterSuite) SetupTest() {
	s.exporter = NewExporter()
}

func (s *ExporterSuite) composeReport(t Type, title string) Report {
	day := func(value, country string) presence.PresenceDay {
		date, err := time.Parse("2006-01-02", value)
		s.Require().NoError(err)
		return presence.PresenceDay{
			Date:        date.UTC(),
			Country:     country,
			Confidence:  0.85,
			Attribution: "passport_stamp",
		}
	}
	days := []presence.PresenceDay{
		day("2024-03-01", "FR"),
		day("2024-03-02", "FR"),
		day("2024-03-03", "DE"),
	}
	r, err := NewComposer().Compose(days, ComposeParams{
		Type:  t,
		Title: title,
		Range: DateRange{
			Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		Raw: Parameters{
			ReportType: t,
			Title:      title,
			StartDate:  "2024-03-01",
			EndDate:    "2024-03-31",
		},
	}, time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC))
	s.Require().NoError(err)
	r.ID = id.NewReportID()
	r.UserID = id.NewUserID()
	return r
}

func (s *ExporterSuite) TestStructuredExport() {
	s.Run("round-trips to an equal report", func() {
		original := s.composeReport(TypeTravelSummary, "World Tour")

		artifact, err := s.exporter.Export(original, FormatStructured)
		s.Require().NoError(err)
		s.Equal("application/json", artifact.ContentType)
		s.Equal("world_tour.json", artifact.Filename)

		var decoded Report
		s.Require().NoError(json.Unmarshal(artifact.Bytes, &decoded))
		s.Equal(original, decoded)
	})

	s.Run("presence reports round-trip too", func() {
		original := s.composeReport(TypeTaxResidency, "Tax Days")

		artifact, err := s.exporter.Export(original, FormatStructured)
		s.Require().NoError(err)

		var decoded Report
		s.Require().NoError(json.Unmarshal(artifact.Bytes, &decoded))
		s.Equal(original, decoded)
	})
}

func (s *ExporterSuite) TestDelimitedExport() {
	s.Run("travel reports flatten the timeline", func() {
		artifact, err := s.exporter.Export(s.composeReport(TypeTravelSummary, "Trips"), FormatDelimited)
		s.Require().NoError(err)
		s.Equal("text/csv", artifact.ContentType)
		s.Equal("trips.csv", artifact.Filename)

		rows, err := csv.NewReader(bytes.NewReader(artifact.Bytes)).ReadAll()
		s.Require().NoError(err)
		s.Require().Len(rows, 4)
		s.Equal([]string{"date", "country"}, rows[0])
		s.Equal([]string{"2024-03-01", "FR"}, rows[1])
		s.Equal([]string{"2024-03-03", "DE"}, rows[3])
	})

	s.Run("presence reports flatten the entries", func() {
		artifact, err := s.exporter.Export(s.composeReport(TypePresence, "Days"), FormatDelimited)
		s.Require().NoError(err)

		rows, err := csv.NewReader(bytes.NewReader(artifact.Bytes)).ReadAll()
		s.Require().NoError(err)
		s.Require().Len(rows, 4)
		s.Equal([]string{"date", "country", "confidence", "attribution", "city", "purpose"}, rows[0])
		s.Equal([]string{"2024-03-01", "FR", "0.85", "passport_stamp", "", ""}, rows[1])
	})

	s.Run("reports without tabular detail fall back to key,value rows", func() {
		bare := Report{
			Type:        TypePresence,
			Title:       "Bare",
			DateRange:   DateRange{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
			GeneratedAt: time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC),
			Status:      StatusCompleted,
		}

		artifact, err := s.exporter.Export(bare, FormatDelimited)
		s.Require().NoError(err)

		rows, err := csv.NewReader(bytes.NewReader(artifact.Bytes)).ReadAll()
		s.Require().NoError(err)
		s.Equal([]string{"key", "value"}, rows[0])
		s.Equal([]string{"report_type", "presence"}, rows[1])
	})
}

func (s *ExporterSuite) TestPlainTextExport() {
	s.Run("renders the banner and sections", func() {
		artifact, err := s.exporter.Export(s.composeReport(TypeTaxResidency, "Tax Residency 2024"), FormatPlainText)
		s.Require().NoError(err)
		s.Equal("text/plain; charset=utf-8", artifact.ContentType)
		s.Equal("tax_residency_2024.txt", artifact.Filename)

		text := string(artifact.Bytes)
		s.True(strings.HasPrefix(text, "Tax Residency 2024\n==================\n"))
		s.Contains(text, "Report type: tax_residency")
		s.Contains(text, "Date range: 2024-03-01 to 2024-03-31")
		s.Contains(text, "Days by country")
		s.Contains(text, "FR: 2")
		s.Contains(text, "Disclaimers")
	})

	s.Run("travel reports list years and the timeline", func() {
		artifact, err := s.exporter.Export(s.composeReport(TypeTravelSummary, "Trips"), FormatPlainText)
		s.Require().NoError(err)

		text := string(artifact.Bytes)
		s.Contains(text, "Days by year")
		s.Contains(text, "2024: 3")
		s.Contains(text, "Timeline")
		s.Contains(text, "2024-03-02  FR")
		s.NotContains(text, "Disclaimers")
	})
}

func (s *ExporterSuite) TestDocumentExport() {
	s.Run("produces a valid minimal pdf", func() {
		artifact, err := s.exporter.Export(s.composeReport(TypePresence, "My USCIS Report 2024"), FormatDocument)
		s.Require().NoError(err)
		s.Equal("application/pdf", artifact.ContentType)
		s.Equal("my_uscis_report_2024.pdf", artifact.Filename)

		s.True(bytes.HasPrefix(artifact.Bytes, []byte("%PDF-1.4")))
		s.True(bytes.HasSuffix(artifact.Bytes, []byte("%%EOF\n")))
		s.Contains(string(artifact.Bytes), "/Type /Catalog")
	})

	s.Run("long reports paginate", func() {
		report := s.composeReport(TypeTravelSummary, "Long")
		for i := 0; i < 200; i++ {
			report.Detail.Travel.Timeline = append(report.Detail.Travel.Timeline,
				TravelEntry{Date: "2024-06-01", Country: "FR"})
		}

		artifact, err := s.exporter.Export(report, FormatDocument)
		s.Require().NoError(err)
		s.Contains(string(artifact.Bytes), "/Count 5")
	})

	s.Run("escapes pdf delimiters in text", func() {
		s.Equal(`\(paren\) and \\slash`, escapePDFText(`(paren) and \slash`))
		s.Equal("caf?", escapePDFText("café"))
	})
}

func (s *ExporterSuite) TestFilenames() {
	cases := []struct {
		name   string
		title  string
		format Format
		want   string
	}{
		{
			name:   "spaces collapse to underscores",
			title:  "My USCIS Report 2024",
			format: FormatDocument,
			want:   "my_uscis_report_2024.pdf",
		},
		{
			name:   "punctuation is stripped",
			title:  "Taxes: 2024/Q1",
			format: FormatStructured,
			want:   "taxes_2024q1.json",
		},
		{
			name:   "all-symbol titles fall back",
			title:  "???",
			format: FormatDelimited,
			want:   "report.csv",
		},
		{
			name:   "surrounding whitespace is trimmed",
			title:  "  Spaced   Out  ",
			format: FormatPlainText,
			want:   "spaced_out.txt",
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.want, exportFilename(tc.title, tc.format))
		})
	}
}

func (s *ExporterSuite) TestFormatParsing() {
	s.Run("accepts canonical names and aliases", func() {
		cases := map[string]Format{
			"structured": FormatStructured,
			"json":       FormatStructured,
			"delimited":  FormatDelimited,
			"csv":        FormatDelimited,
			"plain_text": FormatPlainText,
			"txt":        FormatPlainText,
			"document":   FormatDocument,
			"pdf":        FormatDocument,
			" PDF ":      FormatDocument,
		}
		for raw, want := range cases {
			got, err := ParseFormat(raw)
			s.NoError(err)
			s.Equal(want, got)
		}
	})

	s.Run("rejects unknown formats listing the valid set", func() {
		_, err := ParseFormat("yaml")

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnsupportedFormat))
		s.Contains(err.Error(), "structured")
		s.Contains(err.Error(), "pdf")
	})

	s.Run("export rejects an unknown format value", func() {
		_, err := s.exporter.Export(s.composeReport(TypePresence, "X"), Format("yaml"))

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnsupportedFormat))
	})
}
