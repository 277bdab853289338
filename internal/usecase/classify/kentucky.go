// Package classify assigns a region scope and county tags to an item's
// title and body text using a tiered keyword/regex match, generalized from
// the teacher's single-pass feed-to-article pipeline (which had no
// geography step at all) into the tier system this aggregator requires.
package classify

// explicitKYTerms are unambiguous state references: their presence anywhere
// is a standalone KY signal.
var explicitKYTerms = []string{"Kentucky", "KY"}

// unambiguousCities need no corroborating signal to count as KY-relevant.
var unambiguousCities = []string{
	"Bowling Green", "Owensboro", "Covington", "Richmond", "Florence",
	"Hopkinsville", "Elizabethtown", "Nicholasville", "Jeffersontown",
	"Frankfort", "Paducah", "Henderson", "Radcliff", "Ashland",
	"Danville", "Berea", "Murray", "Bardstown", "Shelbyville",
}

// ambiguousCities share names with places outside Kentucky; they require a
// corroborating KY signal (an explicit term or an unambiguous city mention)
// before they count toward relevance.
var ambiguousCities = []string{
	"Lexington", "Louisville", "Georgetown", "Franklin", "Winchester",
}

// kyCounties is scanned longest-name-first so "Bourbon" doesn't shadow a
// longer match, per the county-extraction rule.
var kyCounties = []string{
	"Christian", "Jefferson", "Fayette", "Kenton", "Boone", "Warren",
	"Hardin", "Daviess", "Campbell", "Madison", "Bullitt", "Oldham",
	"Pulaski", "Laurel", "Scott", "Clark", "Boyd", "Franklin", "Bourbon",
	"McCracken", "Barren", "Whitley", "Pike", "Hopkins", "Shelby",
}

// cityCounty maps a city name to the county it falls in, for expanding a
// city mention into a county tag once a KY signal is already established.
var cityCounty = map[string]string{
	"Lexington":     "Fayette",
	"Louisville":    "Jefferson",
	"Georgetown":    "Scott",
	"Winchester":    "Clark",
	"Bowling Green": "Warren",
	"Owensboro":     "Daviess",
	"Covington":     "Kenton",
	"Richmond":      "Madison",
	"Frankfort":     "Franklin",
	"Paducah":       "McCracken",
	"Henderson":     "Henderson",
	"Ashland":       "Boyd",
	"Murray":        "Calloway",
	"Bardstown":     "Nelson",
	"Shelbyville":   "Shelby",
	"Hopkinsville":  "Christian",
}

// otherStateNames is scanned for the UI's "also mentions" disclosure tag;
// it is intentionally short — the common cross-reference cases, not every
// U.S. state.
var otherStateNames = []string{
	"Ohio", "Indiana", "Tennessee", "Virginia", "West Virginia", "Illinois",
}

// KnownCounties returns the county names this classifier recognizes. The
// read path uses it to widen a free-text search when the query names a
// county directly.
func KnownCounties() []string {
	out := make([]string, len(kyCounties))
	copy(out, kyCounties)
	return out
}
