package advisory

import (
	"regexp"
	"strings"
)

// ukSlugExceptions covers countries whose gov.uk slug does not follow the
// mechanical lowercase-and-hyphenate transform.
var ukSlugExceptions = map[string]string{
	"United States":               "usa",
	"United Kingdom":              "united-kingdom",
	"South Korea":                 "south-korea",
	"North Korea":                 "north-korea",
	"Congo (Democratic Republic)": "democratic-republic-of-congo",
	"Congo":                       "congo",
	"St. Lucia":                   "st-lucia",
	"St. Kitts and Nevis":         "st-kitts-and-nevis",
	"The Bahamas":                 "bahamas",
	"Gambia":                      "the-gambia",
}

var (
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^\w-]`)
)

// ukSlug maps a country name to its gov.uk foreign-travel-advice slug.
func ukSlug(country string) string {
	if slug, ok := ukSlugExceptions[country]; ok {
		return slug
	}
	slug := strings.ToLower(country)
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugInvalid.ReplaceAllString(slug, "")
	return slug
}
