package classify

// RegionScope is the classifier's verdict on an item's relevance.
type RegionScope string

const (
	RegionScopeKY       RegionScope = "ky"
	RegionScopeNational RegionScope = "national"
)

// FailedTier records why a candidate article did not reach KY relevance,
// for diagnostics; empty when the item was classified relevant.
type FailedTier string

const (
	FailedTierNone            FailedTier = ""
	FailedTierAmbiguousNoKY   FailedTier = "ambiguous_city_no_ky_signal"
)

// Location is a (state, county) tag the classifier attaches to an item.
// County is empty for the state-wide tag.
type Location struct {
	State  string
	County string
}

// Result is the classifier's full verdict for one item.
type Result struct {
	RegionScope RegionScope
	Locations   []Location
	OtherStates []string
	FailedTier  FailedTier
}

const bodyMentionThreshold = 2

// Classifier assigns region scope and county tags to item text, using a
// shared pattern cache across calls.
type Classifier struct {
	patterns *patternCache
}

// New creates a Classifier with a pattern cache sized for the full KY term
// set plus counties (comfortably under a few hundred entries).
func New() *Classifier {
	return &Classifier{patterns: newPatternCache(512)}
}

// Classify tiers (title, body) into a region scope per the component's
// three-tier rule, then extracts county tags when a KY signal is present.
func (c *Classifier) Classify(title, body string) Result {
	hasExplicitKY := c.anyMatch(title+" "+body, explicitKYTerms)
	titleHasUnambiguous := c.anyMatch(title, unambiguousCities)
	titleHasAmbiguous := c.anyMatch(title, ambiguousCities)
	titleHasExplicit := c.anyMatch(title, explicitKYTerms)
	titleHasCountySuffix := c.anyCountySuffix(title)

	kySignal := hasExplicitKY || titleHasUnambiguous || titleHasCountySuffix ||
		c.anyMatch(body, unambiguousCities) || c.anyCountySuffix(body)

	// Tier 1: title-strong. A county name followed by "county"/"co." (e.g.
	// "Pike County") is as unambiguous a regional signal as a city name, so
	// it fires Tier 1 on its own, same as an explicit state term would.
	if titleHasExplicit || titleHasUnambiguous || titleHasCountySuffix || (titleHasAmbiguous && kySignal) {
		return c.relevant(title, body, kySignal)
	}

	// Tier 2: body-mentions, counting explicit terms + unambiguous cities,
	// plus ambiguous cities when a KY signal exists anywhere in the article.
	count := c.countMatches(body, explicitKYTerms) + c.countMatches(body, unambiguousCities)
	if kySignal {
		count += c.countMatches(body, ambiguousCities)
	}
	if count >= bodyMentionThreshold {
		return c.relevant(title, body, kySignal)
	}

	// Tier 3: reject — ambiguous city mentioned without corroboration.
	if c.anyMatch(title+" "+body, ambiguousCities) && !kySignal {
		return Result{RegionScope: RegionScopeNational, FailedTier: FailedTierAmbiguousNoKY}
	}

	return Result{RegionScope: RegionScopeNational}
}

func (c *Classifier) relevant(title, body string, kySignal bool) Result {
	text := title + " " + body
	locations := c.extractCounties(text, kySignal)
	return Result{
		RegionScope: RegionScopeKY,
		Locations:   locations,
		OtherStates: c.extractOtherStates(text),
	}
}

// extractCounties scans for county names (longest-first, already ordered in
// kyCounties) and, when a KY signal is present, also scans city names and
// maps them to their county. The state-wide tag is always included.
func (c *Classifier) extractCounties(text string, kySignal bool) []Location {
	seen := map[string]bool{}
	var locations []Location

	for _, county := range kyCounties {
		if c.patterns.countySuffix(county).MatchString(text) && !seen[county] {
			seen[county] = true
			locations = append(locations, Location{State: "KY", County: county})
		}
	}

	if kySignal {
		for city, county := range cityCounty {
			if seen[county] {
				continue
			}
			if c.patterns.wordBoundary(city).MatchString(text) {
				seen[county] = true
				locations = append(locations, Location{State: "KY", County: county})
			}
		}
	}

	locations = append(locations, Location{State: "KY", County: ""})
	return locations
}

func (c *Classifier) extractOtherStates(text string) []string {
	var states []string
	for _, state := range otherStateNames {
		if c.patterns.wordBoundary(state).MatchString(text) {
			states = append(states, state)
		}
	}
	return states
}

func (c *Classifier) anyMatch(text string, terms []string) bool {
	if text == "" {
		return false
	}
	for _, term := range terms {
		if c.patterns.wordBoundary(term).MatchString(text) {
			return true
		}
	}
	return false
}

// anyCountySuffix reports whether text names any known county followed by
// "county"/"co." (e.g. "Pike County"), the same signal extractCounties
// already scans for.
func (c *Classifier) anyCountySuffix(text string) bool {
	if text == "" {
		return false
	}
	for _, county := range kyCounties {
		if c.patterns.countySuffix(county).MatchString(text) {
			return true
		}
	}
	return false
}

func (c *Classifier) countMatches(text string, terms []string) int {
	count := 0
	for _, term := range terms {
		count += len(c.patterns.wordBoundary(term).FindAllString(text, -1))
	}
	return count
}
