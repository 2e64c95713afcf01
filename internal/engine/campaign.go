package engine

import (
	"regexp"
	"strings"
)

// The campaign-code mini-language, as observed across all three platforms:
//
//	AGENCY | PROJECT_TOKEN | DETAIL_TOKEN [ST] | CAMPAIGN_ID
//
// The detail token is underscore-delimited and carries, in no fixed order, a
// project-name fragment, an objective keyword and a period shorthand. The
// head before the [ST] marker appears in several shapes; they are tried in
// a fixed priority order and the first structurally valid one wins.

var (
	reCampaignStart = regexp.MustCompile(`pk\s?\|`)
	reCampaignID    = regexp.MustCompile(`^([A-Z0-9]+)`)
	rePlatformLabel = regexp.MustCompile(`^(Instagram|Facebook)\s*-\s*`)
	reSpaces        = regexp.MustCompile(`\s+`)
	reDigits        = regexp.MustCompile(`^\d+$`)
	reProjectNum    = regexp.MustCompile(`\d{5}`)
	reTypedProject  = regexp.MustCompile(`^[A-Z]{2,3}_pk_\d{5}$`)
	reEmbeddedID    = regexp.MustCompile(`^[A-Z]{2,3}_pk_\d{5}_`)
)

// objectiveVocab is the closed objective vocabulary, in match priority
// order. VDO is a legacy spelling of View.
var objectiveVocab = []struct{ token, canonical string }{
	{"Traffic", "Traffic"},
	{"Awareness", "Awareness"},
	{"Conversion", "Conversion"},
	{"LeadAd", "LeadAd"},
	{"Engagement", "Engagement"},
	{"View", "View"},
	{"Reach", "Reach"},
	{"VDO", "View"},
}

// period shorthands: quarter-year, month-year, year-month-year, day-range
// and GDN-prefixed quarter forms.
var periodPatterns = []struct {
	re    *regexp.Regexp
	group int
}{
	{regexp.MustCompile(`^Q[1-4]Y\d{2}$`), 0},
	{regexp.MustCompile(`^Y\d{2}-([A-Z]{3}\d{2})$`), 1},
	{regexp.MustCompile(`^[A-Z]{3}\d{2}$`), 0},
	{regexp.MustCompile(`(Q[1-4]Y\d{2})`), 1}, // GDNQ2Y25, TTQ2Y25 and friends
	{regexp.MustCompile(`^\d{1,2}-\d{1,2}([A-Z]{3}\d{0,2})$`), 0},
	{regexp.MustCompile(`Y\d{2}-([A-Z]{3}\d{2})`), 1}, // FBViewY25-JUN25-...
	{regexp.MustCompile(`-([A-Z]{3}\d{2})(?:-|$)`), 1},
}

// reTrailingMonth catches period leakage inside hyphenated fragments, e.g.
// TT-Paw-Post2-Jun.
var reTrailingMonth = regexp.MustCompile(`-(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)(\d{2})?$`)

var detailStopWords = map[string]struct{}{
	"pk":        {},
	"none":      {},
	"tiktok":    {},
	"boostpost": {},
	"single":    {},
	"image":     {},
}

// confidence weights: campaign and project identifiers carry the signal.
const (
	wCampaignID  = 0.30
	wProjectID   = 0.30
	wObjective   = 0.15
	wPeriod      = 0.15
	wProjectName = 0.10
)

// ParseCampaignCode parses one campaign-attribution token out of a row
// segment's text. It returns nil when no [ST] marker is present: a missing
// marker means the row carries no campaign code, and the parser never
// guesses.
func ParseCampaignCode(s string) *CampaignAttribution {
	s = rePlatformLabel.ReplaceAllString(strings.TrimSpace(s), "")
	s = reSpaces.ReplaceAllString(s, " ")
	// Wrapped campaign ids surface as " |" after line joining.
	s = strings.ReplaceAll(s, " |", "|")
	s = strings.ReplaceAll(s, "| ", "|")

	loc := reCampaignStart.FindStringIndex(s)
	if loc == nil {
		return nil
	}
	s = "pk|" + s[loc[1]:]

	markerAt := strings.Index(s, attributionMarker)
	if markerAt < 0 {
		return nil
	}

	attr := &CampaignAttribution{Agency: "pk"}

	tail := s[markerAt+len(attributionMarker):]
	if rest, ok := strings.CutPrefix(tail, "|"); ok {
		if m := reCampaignID.FindStringSubmatch(rest); m != nil {
			attr.CampaignID = m[1]
		}
	}

	head := strings.TrimRight(s[:markerAt], "_| ")
	parts := strings.Split(head, "|")
	detail := applyHeadShape(attr, parts)
	classifyDetailTokens(attr, detail)

	attr.Confidence = scoreConfidence(attr)
	return attr
}

// applyHeadShape resolves the project identifier from the head parts and
// returns the detail token to classify. Shapes are ordered; the first
// structurally valid one wins.
func applyHeadShape(attr *CampaignAttribution, parts []string) string {
	if len(parts) < 2 {
		return ""
	}
	second := parts[1]
	rest := ""
	if len(parts) > 2 {
		rest = strings.Join(parts[2:], "_")
	}

	switch {
	// pk|40109|SDH_... : plain numeric project id.
	case reDigits.MatchString(second):
		attr.ProjectID = second
		return rest

	// pk|CD_pk_60029|CD_pk_... : typed project token, repeated with
	// decorations in the detail part.
	case reTypedProject.MatchString(second) && rest != "":
		attr.ProjectID = reProjectNum.FindString(second)
		return rest

	// pk|SDH_pk_40065_... : typed project token with the detail folded in.
	case reEmbeddedID.MatchString(second):
		attr.ProjectID = reProjectNum.FindString(second)
		return second

	// pk|OnlineMKT_pk_... : marketing pseudo-project.
	case strings.Contains(second, "OnlineMKT"):
		attr.ProjectID = "OnlineMKT"
		attr.ProjectName = "Online Marketing"
		return joinNonEmpty(second, rest)

	// pk|Corporate_pk_... : corporate pseudo-project.
	case strings.Contains(second, "Corporate"):
		attr.ProjectID = "Corporate"
		attr.ProjectName = "Corporate"
		return joinNonEmpty(second, rest)

	// pk|TH60031_... : project number buried in the second part.
	case reProjectNum.MatchString(second):
		attr.ProjectID = reProjectNum.FindString(second)
		return joinNonEmpty(second, rest)

	// Bare detail with no recognizable project token.
	default:
		return joinNonEmpty(second, rest)
	}
}

func joinNonEmpty(a, b string) string {
	if b == "" {
		return a
	}
	return a + "_" + b
}

// classifyDetailTokens walks the underscore-delimited detail and assigns
// each token to objective, period or project-name fragment. First match
// per field wins; unmatched hyphenated fragments compete for the project
// name by length.
func classifyDetailTokens(attr *CampaignAttribution, detail string) {
	var bestName string

	for _, tok := range strings.Split(detail, "_") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if _, stop := detailStopWords[strings.ToLower(tok)]; stop {
			continue
		}

		if attr.Objective == "" {
			if obj, ok := matchObjective(tok); ok {
				attr.Objective = obj
				continue
			}
		}
		if attr.Period == "" {
			if p, ok := matchPeriod(tok); ok {
				attr.Period = p
				continue
			}
		}
		if reDigits.MatchString(tok) {
			// A stray five-digit token can still recover a missing project id.
			if attr.ProjectID == "" && len(tok) == 5 {
				attr.ProjectID = tok
			}
			continue
		}
		if attr.Period == "" {
			if m := reTrailingMonth.FindStringSubmatch(tok); m != nil {
				attr.Period = m[1] + m[2]
			}
		}
		if len(tok) > len(bestName) {
			bestName = tok
		}
	}

	if attr.ProjectName == "" && bestName != "" {
		attr.ProjectName = strings.TrimPrefix(bestName, "th-")
	}
}

func matchObjective(tok string) (string, bool) {
	for _, o := range objectiveVocab {
		if tok == o.token {
			return o.canonical, true
		}
	}
	return "", false
}

func matchPeriod(tok string) (string, bool) {
	for _, p := range periodPatterns {
		m := p.re.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		return m[p.group], true
	}
	return "", false
}

func scoreConfidence(attr *CampaignAttribution) float64 {
	score := 0.0
	if attr.CampaignID != "" {
		score += wCampaignID
	}
	if attr.ProjectID != "" {
		score += wProjectID
	}
	if attr.Objective != "" {
		score += wObjective
	}
	if attr.Period != "" {
		score += wPeriod
	}
	if attr.ProjectName != "" {
		score += wProjectName
	}
	return score
}
