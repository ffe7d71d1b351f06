package report

// Fixed advisory blocks. The advisory report kinds are explicitly not legal
// determinations; the disclaimers render verbatim in the composed report and
// in every export of it.

var taxResidencyDisclaimers = []string{
	"This report summarizes physical presence evidence only and is not a tax residency determination.",
	"Residency rules vary by jurisdiction and can depend on factors beyond day counts, such as domicile, ties and treaty provisions.",
	"Days backed by conflicting or low-confidence evidence may overstate or understate actual presence.",
	"Consult a qualified tax professional before relying on these figures.",
}

var visaComplianceDisclaimers = []string{
	"This report summarizes physical presence evidence only and does not compute visa-specific duration or rolling-window limits (for example 90/180-day rules).",
	"Verify stay limits against the issuing authority's current rules for each visa.",
	"Days backed by conflicting or low-confidence evidence may overstate or understate actual presence.",
}

func disclaimersFor(t Type) []string {
	switch t {
	case TypeTaxResidency:
		return taxResidencyDisclaimers
	case TypeVisaCompliance:
		return visaComplianceDisclaimers
	default:
		return nil
	}
}

// Catalog lists every report type with its human description and the
// disclaimers that will be attached.
func Catalog() []Template {
	return []Template{
		{
			Type:        TypePresence,
			Name:        "Presence Report",
			Description: "Day-by-day presence record with per-country totals, suitable for immigration filings.",
		},
		{
			Type:        TypeTravelSummary,
			Name:        "Travel Summary",
			Description: "Yearly and per-country travel aggregates with a chronological timeline.",
		},
		{
			Type:        TypeTaxResidency,
			Name:        "Tax Residency Report",
			Description: "Presence day counts per country for tax residency review. Advisory only.",
			Disclaimers: taxResidencyDisclaimers,
		},
		{
			Type:        TypeVisaCompliance,
			Name:        "Visa Compliance Report",
			Description: "Travel aggregates for checking stays against visa limits. Advisory only.",
			Disclaimers: visaComplianceDisclaimers,
		},
		{
			Type:        TypeCustom,
			Name:        "Custom Report",
			Description: "Travel-summary aggregation over a caller-chosen range and country set.",
		},
	}
}
