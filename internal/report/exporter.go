package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	dErrors "github.com/eshbtc/travelcheck-sub000/pkg/domain-errors"
)

// Format selects an export encoding.
type Format string

const (
	FormatStructured Format = "structured"
	FormatDelimited  Format = "delimited"
	FormatPlainText  Format = "plain_text"
	FormatDocument   Format = "document"
)

// ParseFormat maps external format names, including the common file-extension
// aliases, onto the canonical Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structured", "json":
		return FormatStructured, nil
	case "delimited", "csv":
		return FormatDelimited, nil
	case "plain_text", "plaintext", "text", "txt":
		return FormatPlainText, nil
	case "document", "pdf":
		return FormatDocument, nil
	default:
		return "", dErrors.New(dErrors.CodeUnsupportedFormat,
			"format must be one of structured (json), delimited (csv), plain_text (txt), document (pdf)")
	}
}

// Artifact is one rendered export. Bytes is the raw encoding; transport
// layers are expected to base64 it themselves.
type Artifact struct {
	Bytes       []byte
	ContentType string
	Filename    string
	Format      Format
}

// Exporter renders a composed Report into client-facing encodings. Rendering
// never mutates the report.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// Export renders the report in the requested format.
func (e *Exporter) Export(r Report, format Format) (Artifact, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatStructured:
		data, err = json.MarshalIndent(r, "", "  ")
		if err != nil {
			return Artifact{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode report")
		}
	case FormatDelimited:
		data, err = renderDelimited(r)
		if err != nil {
			return Artifact{}, err
		}
	case FormatPlainText:
		data = []byte(renderPlainText(r))
	case FormatDocument:
		data = renderDocument(renderPlainText(r))
	default:
		_, err = ParseFormat(string(format))
		return Artifact{}, err
	}
	return Artifact{
		Bytes:       data,
		ContentType: contentTypeFor(format),
		Filename:    exportFilename(r.Title, format),
		Format:      format,
	}, nil
}

func renderDelimited(r Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	switch {
	case r.Detail.Travel != nil:
		w.Write([]string{"date", "country"})
		for _, row := range r.Detail.Travel.Timeline {
			w.Write([]string{row.Date, row.Country})
		}
	case r.Detail.Presence != nil:
		w.Write([]string{"date", "country", "confidence", "attribution", "city", "purpose"})
		for _, entry := range r.Detail.Presence.Entries {
			w.Write([]string{
				entry.Date,
				entry.Country,
				strconv.FormatFloat(entry.Confidence, 'f', -1, 64),
				entry.Attribution,
				entry.City,
				entry.Purpose,
			})
		}
	default:
		// No tabular detail survived storage; fall back to key,value rows.
		w.Write([]string{"key", "value"})
		w.Write([]string{"report_type", string(r.Type)})
		w.Write([]string{"title", r.Title})
		w.Write([]string{"start_date", r.DateRange.Start.Format(dateLayout)})
		w.Write([]string{"end_date", r.DateRange.End.Format(dateLayout)})
		w.Write([]string{"generated_at", r.GeneratedAt.Format(time.RFC3339)})
		w.Write([]string{"status", string(r.Status)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode report rows")
	}
	return buf.Bytes(), nil
}

func renderPlainText(r Report) string {
	var b strings.Builder
	title := r.Title
	if title == "" {
		title = "Report"
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", utf8.RuneCountInString(title)) + "\n\n")
	fmt.Fprintf(&b, "Report type: %s\n", r.Type)
	fmt.Fprintf(&b, "Generated at: %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Date range: %s to %s\n",
		r.DateRange.Start.Format(dateLayout), r.DateRange.End.Format(dateLayout))
	if len(r.Countries) > 0 {
		fmt.Fprintf(&b, "Countries: %s\n", strings.Join(r.Countries, ", "))
	}
	if r.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Description)
	}
	if r.Summary.Presence != nil {
		renderPresenceText(&b, r.Summary.Presence, r.Detail.Presence)
	}
	if r.Summary.Travel != nil {
		renderTravelText(&b, r.Summary.Travel, r.Detail.Travel)
	}
	if len(r.Disclaimers) > 0 {
		b.WriteString("\nDisclaimers\n-----------\n")
		for _, d := range r.Disclaimers {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	return b.String()
}

func renderPresenceText(b *strings.Builder, s *PresenceSummary, d *PresenceDetail) {
	b.WriteString("\nSummary\n-------\n")
	fmt.Fprintf(b, "Countries: %d\n", s.TotalCountries)
	fmt.Fprintf(b, "Days: %d\n", s.TotalDays)
	fmt.Fprintf(b, "Entries: %d\n", s.TotalEntries)
	if d == nil {
		return
	}
	if len(d.CountryTotals) > 0 {
		b.WriteString("\nDays by country\n---------------\n")
		for _, cc := range rankCountries(d.CountryTotals) {
			fmt.Fprintf(b, "%s: %d\n", cc.Country, cc.Days)
		}
	}
	if len(d.Entries) > 0 {
		b.WriteString("\nEntries\n-------\n")
		for _, entry := range d.Entries {
			fmt.Fprintf(b, "%s  %s  %.2f  %s", entry.Date, entry.Country, entry.Confidence, entry.Attribution)
			if entry.City != "" {
				fmt.Fprintf(b, "  %s", entry.City)
			}
			if entry.Purpose != "" {
				fmt.Fprintf(b, "  (%s)", entry.Purpose)
			}
			b.WriteString("\n")
		}
	}
}

func renderTravelText(b *strings.Builder, s *TravelSummary, d *TravelDetail) {
	b.WriteString("\nSummary\n-------\n")
	fmt.Fprintf(b, "Unique countries: %d\n", s.UniqueCountries)
	fmt.Fprintf(b, "Total days: %d\n", s.TotalDays)
	if s.YearRange != nil {
		fmt.Fprintf(b, "Years: %d to %d\n", s.YearRange.Start, s.YearRange.End)
	}
	if d == nil {
		return
	}
	if len(d.ByYear) > 0 {
		b.WriteString("\nDays by year\n------------\n")
		years := make([]int, 0, len(d.ByYear))
		for year := range d.ByYear {
			years = append(years, year)
		}
		sort.Ints(years)
		for _, year := range years {
			fmt.Fprintf(b, "%d: %d\n", year, d.ByYear[year])
		}
	}
	if len(d.ByCountry) > 0 {
		b.WriteString("\nDays by country\n---------------\n")
		for _, cc := range d.ByCountry {
			fmt.Fprintf(b, "%s: %d\n", cc.Country, cc.Days)
		}
	}
	if len(d.Timeline) > 0 {
		b.WriteString("\nTimeline\n--------\n")
		for _, row := range d.Timeline {
			fmt.Fprintf(b, "%s  %s\n", row.Date, row.Country)
		}
	}
}

var (
	filenameStrip = regexp.MustCompile(`[^a-z0-9_\s]+`)
	filenameSpace = regexp.MustCompile(`\s+`)
)

// exportFilename derives a download name from the report title: lowercased,
// non-word runs stripped, whitespace collapsed to underscores, plus the
// format's canonical extension.
func exportFilename(title string, format Format) string {
	name := strings.ToLower(title)
	name = filenameStrip.ReplaceAllString(name, "")
	name = filenameSpace.ReplaceAllString(strings.TrimSpace(name), "_")
	if name == "" {
		name = "report"
	}
	return name + "." + extensionFor(format)
}

func extensionFor(format Format) string {
	switch format {
	case FormatStructured:
		return "json"
	case FormatDelimited:
		return "csv"
	case FormatPlainText:
		return "txt"
	default:
		return "pdf"
	}
}

func contentTypeFor(format Format) string {
	switch format {
	case FormatStructured:
		return "application/json"
	case FormatDelimited:
		return "text/csv"
	case FormatPlainText:
		return "text/plain; charset=utf-8"
	default:
		return "application/pdf"
	}
}
