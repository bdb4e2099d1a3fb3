package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/insight"
)

// maxTextRows caps the result table in text output; csv has everything.
const maxTextRows = 20

// printer renders answers in one output format.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(format string, w io.Writer) *printer {
	return &printer{format: format, w: w}
}

// json encodes v, indented for the pretty format.
func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	if p.format == "pretty" {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func (p *printer) answer(ans *insight.Answer) error {
	switch p.format {
	case "json", "pretty":
		return p.json(ans)
	case "csv":
		return ans.WriteCSV(p.w)
	default:
		p.answerText(ans)
		return nil
	}
}

func (p *printer) answerText(ans *insight.Answer) {
	if ans.Question != "" {
		fmt.Fprintf(p.w, "Q: %s\n", ans.Question)
	}
	fmt.Fprintln(p.w, ans.Trace)
	fmt.Fprintln(p.w)

	for _, line := range ans.KPIs.Lines() {
		fmt.Fprintln(p.w, line)
	}

	if ans.Summary != nil && len(ans.Summary.Rows) > 0 {
		fmt.Fprintln(p.w)
		p.tableData(ans.Summary, 0)
	}
	if ans.Table != nil {
		fmt.Fprintln(p.w)
		p.tableData(ans.Table, maxTextRows)
	}
}

// tableData writes a titled table. limit <= 0 writes every row.
func (p *printer) tableData(t *engine.TableData, limit int) {
	if t.Title != "" {
		fmt.Fprintf(p.w, "%s (%d rows)\n", t.Title, len(t.Rows))
	}
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Label
	}
	rows := t.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	p.table(header, rows)
	if len(rows) < len(t.Rows) {
		fmt.Fprintf(p.w, "… %d more rows (use --format csv for all)\n", len(t.Rows)-len(rows))
	}
}

// table writes rows using tabwriter. header is the first row.
func (p *printer) table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

// kv prints a key-value detail view.
func (p *printer) kv(pairs [][2]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, pair := range pairs {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", pair[0], pair[1])
	}
	_ = tw.Flush()
}
