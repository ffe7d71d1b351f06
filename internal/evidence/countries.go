package evidence

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	// minFuzzyLength gates edit-distance matching. Short strings flip to a
	// different country within two edits ("iraq" vs "iran"), so anything
	// under four characters resolves exactly or not at all.
	minFuzzyLength = 4

	// maxCountryDistance is the edit budget for OCR noise like "frnace".
	maxCountryDistance = 2
)

// isoAlpha2 holds every assigned ISO-3166-1 alpha-2 code.
var isoAlpha2 = func() map[string]bool {
	codes := []string{
		"AD", "AE", "AF", "AG", "AI", "AL", "AM", "AO", "AQ", "AR", "AS", "AT", "AU", "AW", "AX", "AZ",
		"BA", "BB", "BD", "BE", "BF", "BG", "BH", "BI", "BJ", "BL", "BM", "BN", "BO", "BQ", "BR", "BS",
		"BT", "BV", "BW", "BY", "BZ", "CA", "CC", "CD", "CF", "CG", "CH", "CI", "CK", "CL", "CM", "CN",
		"CO", "CR", "CU", "CV", "CW", "CX", "CY", "CZ", "DE", "DJ", "DK", "DM", "DO", "DZ", "EC", "EE",
		"EG", "EH", "ER", "ES", "ET", "FI", "FJ", "FK", "FM", "FO", "FR", "GA", "GB", "GD", "GE", "GF",
		"GG", "GH", "GI", "GL", "GM", "GN", "GP", "GQ", "GR", "GS", "GT", "GU", "GW", "GY", "HK", "HM",
		"HN", "HR", "HT", "HU", "ID", "IE", "IL", "IM", "IN", "IO", "IQ", "IR", "IS", "IT", "JE", "JM",
		"JO", "JP", "KE", "KG", "KH", "KI", "KM", "KN", "KP", "KR", "KW", "KY", "KZ", "LA", "LB", "LC",
		"LI", "LK", "LR", "LS", "LT", "LU", "LV", "LY", "MA", "MC", "MD", "ME", "MF", "MG", "MH", "MK",
		"ML", "MM", "MN", "MO", "MP", "MQ", "MR", "MS", "MT", "MU", "MV", "MW", "MX", "MY", "MZ", "NA",
		"NC", "NE", "NF", "NG", "NI", "NL", "NO", "NP", "NR", "NU", "NZ", "OM", "PA", "PE", "PF", "PG",
		"PH", "PK", "PL", "PM", "PN", "PR", "PS", "PT", "PW", "PY", "QA", "RE", "RO", "RS", "RU", "RW",
		"SA", "SB", "SC", "SD", "SE", "SG", "SH", "SI", "SJ", "SK", "SL", "SM", "SN", "SO", "SR", "SS",
		"ST", "SV", "SX", "SY", "SZ", "TC", "TD", "TF", "TG", "TH", "TJ", "TK", "TL", "TM", "TN", "TO",
		"TR", "TT", "TV", "TW", "TZ", "UA", "UG", "UM", "US", "UY", "UZ", "VA", "VC", "VE", "VG", "VI",
		"VN", "VU", "WF", "WS", "YE", "YT", "ZA", "ZM", "ZW",
	}
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}()

// countryNames maps casefolded country names, common aliases, and alpha-3
// codes to their alpha-2 code. Keys are lowercase with single spaces.
var countryNames = map[string]string{
	"afghanistan":            "AF",
	"albania":                "AL",
	"algeria":                "DZ",
	"andorra":                "AD",
	"angola":                 "AO",
	"are":                    "AE",
	"argentina":              "AR",
	"armenia":                "AM",
	"aus":                    "AU",
	"australia":              "AU",
	"austria":                "AT",
	"aut":                    "AT",
	"azerbaijan":             "AZ",
	"bahamas":                "BS",
	"bahrain":                "BH",
	"bangladesh":             "BD",
	"barbados":               "BB",
	"bel":                    "BE",
	"belarus":                "BY",
	"belgium":                "BE",
	"belize":                 "BZ",
	"bolivia":                "BO",
	"bosnia":                 "BA",
	"bosnia and herzegovina": "BA",
	"botswana":               "BW",
	"bra":                    "BR",
	"brazil":                 "BR",
	"brunei":                 "BN",
	"bulgaria":               "BG",
	"burma":                  "MM",
	"cambodia":               "KH",
	"cameroon":               "CM",
	"can":                    "CA",
	"canada":                 "CA",
	"che":                    "CH",
	"chile":                  "CL",
	"china":                  "CN",
	"chn":                    "CN",
	"colombia":               "CO",
	"costa rica":             "CR",
	"cote d'ivoire":          "CI",
	"croatia":                "HR",
	"cuba":                   "CU",
	"cyprus":                 "CY",
	"czech republic":         "CZ",
	"czechia":                "CZ",
	"denmark":                "DK",
	"deu":                    "DE",
	"dnk":                    "DK",
	"dominican republic":     "DO",
	"ecuador":                "EC",
	"egypt":                  "EG",
	"el salvador":            "SV",
	"esp":                    "ES",
	"estonia":                "EE",
	"ethiopia":               "ET",
	"fiji":                   "FJ",
	"fin":                    "FI",
	"finland":                "FI",
	"fra":                    "FR",
	"france":                 "FR",
	"gbr":                    "GB",
	"georgia":                "GE",
	"ger":                    "DE",
	"germany":                "DE",
	"ghana":                  "GH",
	"great britain":          "GB",
	"grc":                    "GR",
	"greece":                 "GR",
	"guatemala":              "GT",
	"holland":                "NL",
	"honduras":               "HN",
	"hong kong":              "HK",
	"hungary":                "HU",
	"iceland":                "IS",
	"ind":                    "IN",
	"india":                  "IN",
	"indonesia":              "ID",
	"iran":                   "IR",
	"iraq":                   "IQ",
	"ireland":                "IE",
	"irl":                    "IE",
	"israel":                 "IL",
	"ita":                    "IT",
	"italy":                  "IT",
	"ivory coast":            "CI",
	"jamaica":                "JM",
	"japan":                  "JP",
	"jordan":                 "JO",
	"jpn":                    "JP",
	"kazakhstan":             "KZ",
	"kenya":                  "KE",
	"kor":                    "KR",
	"korea":                  "KR",
	"kuwait":                 "KW",
	"laos":                   "LA",
	"latvia":                 "LV",
	"lebanon":                "LB",
	"libya":                  "LY",
	"liechtenstein":          "LI",
	"lithuania":              "LT",
	"luxembourg":             "LU",
	"macao":                  "MO",
	"macau":                  "MO",
	"madagascar":             "MG",
	"malaysia":               "MY",
	"maldives":               "MV",
	"malta":                  "MT",
	"mex":                    "MX",
	"mexico":                 "MX",
	"moldova":                "MD",
	"monaco":                 "MC",
	"mongolia":               "MN",
	"montenegro":             "ME",
	"morocco":                "MA",
	"mozambique":             "MZ",
	"myanmar":                "MM",
	"namibia":                "NA",
	"nepal":                  "NP",
	"netherlands":            "NL",
	"new zealand":            "NZ",
	"nicaragua":              "NI",
	"nigeria":                "NG",
	"nld":                    "NL",
	"nor":                    "NO",
	"north korea":            "KP",
	"north macedonia":        "MK",
	"norway":                 "NO",
	"nzl":                    "NZ",
	"oman":                   "OM",
	"pakistan":               "PK",
	"palestine":              "PS",
	"panama":                 "PA",
	"paraguay":               "PY",
	"peru":                   "PE",
	"philippines":            "PH",
	"pol":                    "PL",
	"poland":                 "PL",
	"portugal":               "PT",
	"prt":                    "PT",
	"qatar":                  "QA",
	"republic of korea":      "KR",
	"romania":                "RO",
	"rus":                    "RU",
	"russia":                 "RU",
	"russian federation":     "RU",
	"rwanda":                 "RW",
	"saudi arabia":           "SA",
	"senegal":                "SN",
	"serbia":                 "RS",
	"sgp":                    "SG",
	"singapore":              "SG",
	"slovakia":               "SK",
	"slovenia":               "SI",
	"south africa":           "ZA",
	"south korea":            "KR",
	"spain":                  "ES",
	"sri lanka":              "LK",
	"swe":                    "SE",
	"sweden":                 "SE",
	"switzerland":            "CH",
	"taiwan":                 "TW",
	"tanzania":               "TZ",
	"tha":                    "TH",
	"thailand":               "TH",
	"tunisia":                "TN",
	"tur":                    "TR",
	"turkey":                 "TR",
	"turkiye":                "TR",
	"uae":                    "AE",
	"uganda":                 "UG",
	"uk":                     "GB",
	"ukraine":                "UA",
	"united arab emirates":   "AE",
	"united kingdom":         "GB",
	"united states":          "US",
	"uruguay":                "UY",
	"usa":                    "US",
	"uzbekistan":             "UZ",
	"venezuela":              "VE",
	"viet nam":               "VN",
	"vietnam":                "VN",
	"vnm":                    "VN",
	"yemen":                  "YE",
	"zaf":                    "ZA",
	"zambia":                 "ZM",
	"zimbabwe":               "ZW",
}

// resolveCountry maps a raw country field to an ISO alpha-2 code. The second
// return is true when resolution failed and the trimmed input is passed
// through verbatim; the reconciler weights such records down.
func resolveCountry(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	upper := strings.ToUpper(trimmed)
	if len(upper) == 2 && isoAlpha2[upper] {
		return upper, false
	}
	folded := strings.Join(strings.Fields(strings.ToLower(trimmed)), " ")
	if code, ok := countryNames[folded]; ok {
		return code, false
	}
	if len(folded) >= minFuzzyLength {
		if code, ok := fuzzyCountry(folded); ok {
			return code, false
		}
	}
	return trimmed, true
}

// fuzzyCountry absorbs small misspellings from OCR'd stamps. Ties resolve to
// the alphabetically first table key so results do not depend on map order.
func fuzzyCountry(folded string) (string, bool) {
	best := maxCountryDistance + 1
	bestKey := ""
	for name := range countryNames {
		delta := len(name) - len(folded)
		if delta < -maxCountryDistance || delta > maxCountryDistance {
			continue
		}
		d := levenshtein.ComputeDistance(folded, name)
		if d < best || (d == best && name < bestKey) {
			best = d
			bestKey = name
		}
	}
	if best > maxCountryDistance {
		return "", false
	}
	return countryNames[bestKey], true
}
