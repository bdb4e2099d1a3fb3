package translator

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/schema"
)

// ============================================================================
// RULE TABLES — Lexical understanding of shipment questions
// ============================================================================
// Each table maps a textual pattern to a canonical plan field. Rules are
// tried in order and the first match wins unless noted otherwise.
// ============================================================================

// ── Number words ──────────────────────────────────────────────────────────

var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
	"eleven": "11", "twelve": "12", "thirteen": "13", "fourteen": "14", "fifteen": "15",
}

var numberWordRe = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen)\b`)

// NormalizeNumberWords replaces the words one..fifteen with digits.
func NormalizeNumberWords(text string) string {
	return numberWordRe.ReplaceAllStringFunc(text, func(w string) string {
		return numberWords[strings.ToLower(w)]
	})
}

// ── Time ranges ───────────────────────────────────────────────────────────

type timeRule struct {
	name  string
	re    *regexp.Regexp
	build func(m []string, today time.Time) *engine.TimeRange
}

var unitDays = map[string]int{"day": 1, "week": 7, "month": 30, "quarter": 90, "year": 365}

var timeRules = []timeRule{
	{
		name: "between",
		re:   regexp.MustCompile(`\b(?:between|from)\s+(\d{4}-\d{2}-\d{2})\s+(?:and|to|through|until)\s+(\d{4}-\d{2}-\d{2})\b`),
		build: func(m []string, _ time.Time) *engine.TimeRange {
			start, end := schema.ParseDate(m[1]), schema.ParseDate(m[2])
			if start.IsZero() || end.IsZero() {
				return nil
			}
			if end.Before(start) {
				start, end = end, start
			}
			return engine.Between(start, end)
		},
	},
	{
		name: "last_n_units",
		re:   regexp.MustCompile(`\b(?:last|past|previous)\s+(\d+)\s*(day|week|month|quarter|year)s?\b`),
		build: func(m []string, _ time.Time) *engine.TimeRange {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				return nil
			}
			return engine.LastNDays(n * unitDays[m[2]])
		},
	},
	{
		name:  "last_quarter",
		re:    regexp.MustCompile(`\b(?:last|past|previous)\s+quarter\b`),
		build: func([]string, time.Time) *engine.TimeRange { return engine.LastNDays(90) },
	},
	{
		name:  "last_week",
		re:    regexp.MustCompile(`\b(?:last|past|previous)\s+week\b`),
		build: func([]string, time.Time) *engine.TimeRange { return engine.LastNDays(7) },
	},
	{
		name: "this_year",
		re:   regexp.MustCompile(`\b(?:this|current)\s+year\b|\byear\s+to\s+date\b|\bytd\b`),
		build: func(_ []string, today time.Time) *engine.TimeRange {
			return engine.Between(time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), today)
		},
	},
	{
		name: "last_year",
		re:   regexp.MustCompile(`\b(?:last|previous)\s+year\b`),
		build: func(_ []string, today time.Time) *engine.TimeRange {
			y := today.Year() - 1
			return engine.Between(time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(y, 12, 31, 0, 0, 0, 0, time.UTC))
		},
	},
	{
		name: "this_quarter",
		re:   regexp.MustCompile(`\b(?:this|current)\s+quarter\b`),
		build: func(_ []string, today time.Time) *engine.TimeRange {
			first := time.Month((int(today.Month())-1)/3*3 + 1)
			return engine.Between(time.Date(today.Year(), first, 1, 0, 0, 0, 0, time.UTC), today)
		},
	},
	{
		name: "this_month",
		re:   regexp.MustCompile(`\b(?:this|current)\s+month\b`),
		build: func(_ []string, today time.Time) *engine.TimeRange {
			return engine.Between(time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today)
		},
	},
	{
		name: "last_month",
		re:   regexp.MustCompile(`\b(?:last|previous)\s+month\b`),
		build: func(_ []string, today time.Time) *engine.TimeRange {
			start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
			return engine.Between(start, start.AddDate(0, 1, -1))
		},
	},
	{
		name: "yesterday",
		re:   regexp.MustCompile(`\byesterday\b`),
		build: func(_ []string, today time.Time) *engine.TimeRange {
			y := today.AddDate(0, 0, -1)
			return engine.Between(y, y)
		},
	},
	{
		name:  "today",
		re:    regexp.MustCompile(`\btoday\b`),
		build: func(_ []string, today time.Time) *engine.TimeRange { return engine.Between(today, today) },
	},
}

// MatchTimeRange applies the time rules to lower-cased, number-normalized
// text. today must be a UTC calendar day.
func MatchTimeRange(text string, today time.Time) *engine.TimeRange {
	for _, r := range timeRules {
		if m := r.re.FindStringSubmatch(text); m != nil {
			if tr := r.build(m, today); tr != nil {
				return tr
			}
		}
	}
	return nil
}

// ── Categorical values ────────────────────────────────────────────────────

type valueRule struct {
	value   string
	phrases []string
}

// statusRules are checked before riskPhrases so an explicit status wins.
var statusRules = []valueRule{
	{schema.StatusInTransit, []string{"in transit", "in-transit"}},
	{schema.StatusDelivered, []string{"delivered"}},
	{schema.StatusCancelled, []string{"cancelled", "canceled"}},
	{schema.StatusDelayed, []string{"delayed"}},
}

// riskPhrases all mean the shipment is running behind.
var riskPhrases = []string{
	"risky", "at risk", "behind schedule", "late", "overdue", "running late", "lagging", "slipped",
}

var modeRules = []valueRule{
	{"Air", []string{"air", "air freight", "by plane"}},
	{"Ocean", []string{"ocean", "sea", "sea freight"}},
	{"Road", []string{"road", "truck", "trucks", "trucking"}},
}

// MatchStatus returns the shipment status a question asks for.
func MatchStatus(text string) (string, bool) {
	if v, ok := matchValueRules(text, statusRules); ok {
		return v, true
	}
	for _, p := range riskPhrases {
		if schema.ContainsPhrase(text, p) {
			return schema.StatusDelayed, true
		}
	}
	return "", false
}

// MatchMode returns the transport mode a question asks for.
func MatchMode(text string) (string, bool) {
	return matchValueRules(text, modeRules)
}

func matchValueRules(text string, rules []valueRule) (string, bool) {
	for _, r := range rules {
		for _, p := range r.phrases {
			if schema.ContainsPhrase(text, p) {
				return r.value, true
			}
		}
	}
	return "", false
}

// ── Countries and lanes ───────────────────────────────────────────────────
// These run on the original-case question: country codes are upper case.

var (
	originRe      = regexp.MustCompile(`\b(?:from|ex)\s+([A-Z]{2})\b`)
	destinationRe = regexp.MustCompile(`\b(?:to|into)\s+([A-Z]{2})\b`)
	laneRe        = regexp.MustCompile(`\b([A-Za-z]{2})\s*(?:->|→|=>|-)\s*([A-Za-z]{2})\b`)
)

// MatchOrigin finds "from XX" with an upper-case country code.
func MatchOrigin(question string) (string, bool) {
	if m := originRe.FindStringSubmatch(question); m != nil {
		return m[1], true
	}
	return "", false
}

// MatchDestination finds "to XX" with an upper-case country code.
func MatchDestination(question string) (string, bool) {
	if m := destinationRe.FindStringSubmatch(question); m != nil {
		return m[1], true
	}
	return "", false
}

// MatchLane finds an origin->destination lane. An arrow pattern is kept
// when it is a known lane, or when no lanes are known; otherwise the first
// known lane spelled out literally in the question wins.
func MatchLane(question string, known []string) (string, bool) {
	for _, m := range laneRe.FindAllStringSubmatch(question, -1) {
		lane := strings.ToUpper(m[1]) + "->" + strings.ToUpper(m[2])
		if len(known) == 0 {
			return lane, true
		}
		for _, k := range known {
			if strings.EqualFold(k, lane) {
				return k, true
			}
		}
	}
	lower := strings.ToLower(question)
	for _, k := range known {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return k, true
		}
	}
	return "", false
}

// ── Suppliers ─────────────────────────────────────────────────────────────

// MatchSupplier finds a known supplier named in the question, ignoring case
// and punctuation. The first supplier in list order that matches wins.
func MatchSupplier(question string, known []string) (string, bool) {
	text := " " + squashPunctuation(question) + " "
	for _, s := range known {
		name := squashPunctuation(s)
		if name == "" {
			continue
		}
		if strings.Contains(text, " "+name+" ") {
			return s, true
		}
	}
	return "", false
}

// squashPunctuation lower-cases text and reduces every run of
// non-alphanumeric characters to one space.
func squashPunctuation(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if isWordRune(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127 && r != '’' && r != '‘'
}

// ── Ranking ───────────────────────────────────────────────────────────────

var (
	topNRe = regexp.MustCompile(`\b(?:top|limit|best|largest|biggest)\s+(\d+)\s+`)
	byRe   = regexp.MustCompile(`\bby\s+`)
)

// TopN is a parsed "top N <dimension> [by <metric>]" request.
type TopN struct {
	Dimension string
	N         int
	Metric    string // empty when no metric was named
}

// MatchTopN parses a top-N request from lower-cased, number-normalized
// text. The metric comes from the "by" phrase, else from anywhere in the
// question.
func MatchTopN(text string, sch schema.Config) (TopN, bool) {
	loc := topNRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return TopN{}, false
	}
	n, err := strconv.Atoi(text[loc[2]:loc[3]])
	if err != nil || n <= 0 {
		return TopN{}, false
	}

	rest := text[loc[1]:]
	dim, consumed, ok := dimensionAtStart(rest, sch)
	if !ok {
		return TopN{}, false
	}
	top := TopN{Dimension: dim, N: n}

	after := rest[consumed:]
	if by := byRe.FindStringIndex(after); by != nil {
		if m, ok := sch.MatchMetric(after[by[1]:]); ok {
			top.Metric = m
		}
	}
	if top.Metric == "" {
		if m, ok := sch.MatchMetric(text); ok {
			top.Metric = m
		}
	}
	return top, true
}

// MatchBy reads "by <dimension>" and "by <metric>" clauses.
func MatchBy(text string, sch schema.Config) (groupBy, metric string) {
	for _, loc := range byRe.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		if groupBy == "" {
			if dim, _, ok := dimensionAtStart(rest, sch); ok {
				groupBy = dim
				continue
			}
		}
		if metric == "" {
			if m, ok := metricAtStart(rest, sch); ok {
				metric = m
			}
		}
	}
	return groupBy, metric
}

// dimensionAtStart matches the longest dimension alias opening text.
func dimensionAtStart(text string, sch schema.Config) (string, int, bool) {
	for _, a := range sch.DimensionAliases() {
		if n, ok := phrasePrefix(text, a.Phrase); ok {
			return a.Column, n, true
		}
	}
	return "", 0, false
}

func metricAtStart(text string, sch schema.Config) (string, bool) {
	for _, a := range sch.MetricAliases() {
		if _, ok := phrasePrefix(text, a.Phrase); ok {
			return a.Column, true
		}
	}
	return "", false
}

// phrasePrefix reports whether text opens with phrase as whole words and
// returns the length consumed.
func phrasePrefix(text, phrase string) (int, bool) {
	parts := strings.FieldsFunc(strings.ToLower(phrase), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return 0, false
	}
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile(`^(?i)` + strings.Join(parts, `[\s_-]+`) + `(?:$|[^\pL\pN_])`)
	if err != nil {
		return 0, false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return 0, false
	}
	return loc[1], true
}
