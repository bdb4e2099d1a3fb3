package translator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/schema"
)

// ============================================================================
// PROMPT BUILDER — Catalog-driven messages for the remote planner
// ============================================================================
// The model sees column names, known categorical values and alias tables.
// It never sees rows. Output is one JSON plan with all six keys.
// ============================================================================

const (
	maxPromptColumns = 40
	maxPromptValues  = 60
)

// fewShot pairs a question with the plan the model should answer with.
type fewShot struct {
	question string
	plan     engine.Plan
}

var fewShots = []fewShot{
	{
		question: "show risky shipments of supplier hanoi textils last 30 days",
		plan: engine.Plan{
			TimeRange: engine.LastNDays(30),
			Filters: engine.Filters{
				"status":   engine.Scalar(schema.StatusDelayed),
				"supplier": engine.Scalar("Hanoi Textiles"),
			},
		},
	},
	{
		question: "delayed ocean shipments for vendor acme components",
		plan: engine.Plan{
			Filters: engine.Filters{
				"status":   engine.Scalar(schema.StatusDelayed),
				"mode":     engine.Scalar("Ocean"),
				"supplier": engine.Scalar("Acme Components"),
			},
		},
	},
	{
		question: "top two suppliers by spend last quarter",
		plan: engine.Plan{
			TimeRange: engine.LastNDays(90),
			Filters:   engine.Filters{},
			GroupBy:   engine.Ptr("supplier"),
			OrderBy:   &engine.OrderBy{Metric: schema.ColTotalLandedCost, Direction: "desc"},
			Limit:     &engine.Limit{Dimension: "supplier", N: 2, Metric: engine.Ptr(schema.ColTotalLandedCost)},
		},
	},
}

// BuildMessages assembles the conversation sent to a chat backend:
// system prompt, few-shot pairs, then the question.
func BuildMessages(question string, sch schema.Config, today time.Time) []Message {
	msgs := []Message{{Role: RoleSystem, Content: BuildSystemPrompt(sch, today)}}
	for _, fs := range fewShots {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: fs.question},
			Message{Role: RoleAssistant, Content: fs.plan.JSON()},
		)
	}
	msgs = append(msgs, Message{
		Role:    RoleUser,
		Content: "User question: " + NormalizeNumberWords(strings.TrimSpace(question)) + "\nReturn ONLY the JSON plan with all required keys.",
	})
	return msgs
}

// FlattenMessages renders a conversation as one plain-completion prompt.
func FlattenMessages(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s]\n%s\n", strings.ToUpper(m.Role), m.Content)
	}
	b.WriteString("Return ONLY the JSON plan.")
	return b.String()
}

// BuildSystemPrompt describes the plan contract and the catalog.
func BuildSystemPrompt(sch schema.Config, today time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You translate questions about the %q dataset into a JSON query plan.
Today is %s.

`, sch.Name, today.Format("2006-01-02"))

	b.WriteString(planContract)
	b.WriteString(entityRules)
	b.WriteString(timeRulesText)
	b.WriteString(rankingRules)

	b.WriteString("\nEXAMPLE OUTPUT:\n")
	b.WriteString(fewShots[2].plan.JSON())
	b.WriteString("\n\n")

	b.WriteString(buildColumnHints(sch))
	b.WriteString(buildValueHints(sch))
	b.WriteString(buildAliasHints("DIMENSION ALIASES", sch.DimensionAliases()))
	b.WriteString(buildAliasHints("METRIC ALIASES", sch.MetricAliases()))

	b.WriteString("\nAnswer with the JSON object only. No prose, no code fences.\n")
	return b.String()
}

// ============================================================================
// SECTIONS
// ============================================================================

const planContract = `PLAN CONTRACT:
Return one JSON object with exactly these keys (use null when not needed):
- "time_range": {"type":"last_n_days","n":<int>} or {"type":"between","start":"YYYY-MM-DD","end":"YYYY-MM-DD"}
- "filters": object of column -> value or list of values (use {} when none)
- "group_by": a dimension column or null
- "order_by": {"metric":<measure column>,"direction":"asc"|"desc"} or null
- "limit": {"dimension":<dimension column>,"n":<int>,"metric":<measure column or null>} or null
- "select": list of columns or null
`

const entityRules = `
ENTITY RULES:
- Use column names and values exactly as listed below.
- Match supplier names loosely (case, punctuation, small typos) to a known supplier.
- "risky", "at risk", "late", "overdue", "behind schedule" mean status "Delayed".
- "in transit" means status "In-Transit". "sea" means mode "Ocean", "truck" means mode "Road".
- "from XX" is origin_country XX, "to XX" is destination_country XX, "XX->YY" is a lane.
`

const timeRulesText = `
TIME RULES:
- "last N days/weeks/months" -> last_n_days with n in days (week=7, month=30, year=365).
- "last quarter" -> last_n_days 90.
- Calendar periods ("this year", "last month") -> between with explicit dates, never after today.
- No time phrase -> "time_range": null.
`

const rankingRules = `
RANKING RULES:
- "top N <dimension> by <metric>" -> group_by the dimension, order_by the metric desc, limit {dimension, n, metric}.
- If no metric is named, set the limit metric to null (ranks by shipment count).
- "by <dimension>" alone -> group_by only.
`

func buildColumnHints(sch schema.Config) string {
	cols := sch.Columns()
	sort.Strings(cols)
	if len(cols) > maxPromptColumns {
		cols = cols[:maxPromptColumns]
	}
	return "AVAILABLE COLUMNS: " + strings.Join(cols, ", ") + "\n"
}

func buildValueHints(sch schema.Config) string {
	var b strings.Builder
	for _, hint := range []struct{ label, column string }{
		{"KNOWN SUPPLIERS", "supplier"},
		{"KNOWN MODES", "mode"},
		{"KNOWN STATUSES", "status"},
		{"KNOWN LANES", "lane"},
	} {
		vals := sch.KnownValues(hint.column)
		if len(vals) == 0 {
			continue
		}
		if len(vals) > maxPromptValues {
			vals = vals[:maxPromptValues]
		}
		fmt.Fprintf(&b, "%s: %s\n", hint.label, strings.Join(vals, " | "))
	}
	return b.String()
}

func buildAliasHints(label string, aliases []schema.Alias) string {
	if len(aliases) == 0 {
		return ""
	}
	byColumn := make(map[string][]string)
	var order []string
	for _, a := range aliases {
		if _, seen := byColumn[a.Column]; !seen {
			order = append(order, a.Column)
		}
		byColumn[a.Column] = append(byColumn[a.Column], a.Phrase)
	}
	sort.Strings(order)

	var b strings.Builder
	b.WriteString(label + ":\n")
	for _, col := range order {
		fmt.Fprintf(&b, "- %s: %s\n", strings.Join(byColumn[col], ", "), col)
	}
	return b.String()
}
