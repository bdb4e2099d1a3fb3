package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spektr-org/shipinsight/config"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/engine/enginetest"
	"github.com/spektr-org/shipinsight/insight"
)

const shipmentsCSV = `po_number,supplier,origin_country,destination_country,lane,mode,incoterm,status,quantity,unit_price,freight_cost,duty_cost,shipment_id,po_date,planned_ship_date,actual_ship_date,planned_eta,actual_eta
P1,Acme Components,CN,US,CN->US,Air,FOB,Delayed,10,100,50,10,S1,2026-10-01,2026-10-03,2026-10-04,2026-10-08,
P2,Acme Components,CN,US,CN->US,Ocean,FOB,Delivered,20,100,200,20,S2,2026-09-01,2026-09-05,2026-09-06,2026-10-01,2026-09-30
P3,Hanoi Textiles,VN,US,VN->US,Air,CIF,Delayed,5,100,30,0,S3,2026-10-05,2026-10-07,2026-10-08,2026-10-12,
P4,Hanoi Textiles,VN,US,VN->US,Ocean,CIF,Delivered,50,100,300,50,S4,2026-08-01,2026-08-05,2026-08-07,2026-09-05,2026-09-15
P5,Bharat Steel Works,IN,DE,IN->DE,Road,DDP,Delivered,30,100,100,0,S5,2026-07-20,2026-07-25,2026-07-26,2026-08-20,2026-08-20
P6,Shenzhen Electronics Co.,CN,US,CN->US,Air,FOB,Delayed,8,100,40,0,S6,2026-10-10,2026-10-11,2026-10-12,2026-10-20,
P7,Nippon Optics,JP,US,JP->US,Air,FOB,Delivered,40,100,100,0,S7,2026-09-25,2026-09-27,2026-09-28,2026-10-02,2026-10-01
P8,Rhine Precision GmbH,DE,US,DE->US,Ocean,EXW,In-Transit,10,100,100,0,S8,2025-06-01,2025-06-05,2025-06-06,2025-07-10,
P9,Monterrey Plastics,MX,US,MX->US,Road,DAP,Cancelled,10,10,0,0,S9,2026-10-12,,,,
`

// run executes the CLI against a temp copy of the test dataset with the
// rule-based planner and a fixed today.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	for _, k := range []string{"HF_TOKEN", "GEMINI_API_KEY", "LLM_MODEL", "LLM_PROVIDER"} {
		t.Setenv(k, "")
	}
	t.Setenv("SHIPINSIGHT_CONFIG", filepath.Join(dir, "config.yaml"))

	data := filepath.Join(dir, "shipments.csv")
	require.NoError(t, os.WriteFile(data, []byte(shipmentsCSV), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--data", data, "--provider", "heuristic", "--today", "2026-10-16"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "shipinsight "+version+"\n", out)
}

func TestAsk_Text(t *testing.T) {
	out, err := run(t, "", "ask", "delivered", "shipments", "by", "supplier", "--all-dates")
	require.NoError(t, err)

	assert.Contains(t, out, "Q: delivered shipments by supplier")
	assert.Contains(t, out, "planner: heuristic")
	assert.Contains(t, out, "Total Shipments: 4")
	assert.Contains(t, out, "Results (4 rows)")
	assert.Contains(t, out, "Nippon Optics")
	assert.NotContains(t, out, "Monterrey Plastics")
}

func TestAsk_CSVToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	out, err := run(t, "", "ask", "ocean shipments", "--all-dates", "--format", "csv", "--out", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 1+3)
}

func TestAsk_JSON(t *testing.T) {
	out, err := run(t, "", "ask", "air shipments", "--format", "json", "--supplier", "Acme Components")
	require.NoError(t, err)

	var ans map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &ans))
	assert.Equal(t, float64(1), ans["rows"])
	assert.Equal(t, "heuristic", ans["source"])
	assert.NotEmpty(t, ans["id"])
}

func TestPlan_JSON(t *testing.T) {
	out, err := run(t, "", "plan", "top 5 suppliers by spend last quarter", "--format", "json")
	require.NoError(t, err)

	var got planOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "top 5 suppliers by spend last quarter", got.Question)
	assert.Equal(t, "heuristic", got.Source)
	assert.Equal(t, engine.LastNDays(90), got.Plan.TimeRange)
	assert.Equal(t, &engine.Limit{Dimension: "supplier", N: 5, Metric: engine.Ptr("total_landed_cost")}, got.Plan.Limit)
}

func TestPlan_Text(t *testing.T) {
	out, err := run(t, "", "plan", "delayed", "air")
	require.NoError(t, err)
	assert.Contains(t, out, "planner:")
	assert.Contains(t, out, "json:")
	assert.Contains(t, out, `"mode":"Air"`)
}

func TestBatch_Stdin(t *testing.T) {
	stdin := "# weekly questions\nair shipments\n\nocean shipments\n"

	out, err := run(t, stdin, "batch", "--all-dates", "--format", "json")
	require.NoError(t, err)

	var answers []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &answers))
	require.Len(t, answers, 2)
	assert.Equal(t, "air shipments", answers[0]["question"])
	assert.Equal(t, float64(4), answers[0]["rows"])
	assert.Equal(t, float64(3), answers[1]["rows"])
}

func TestBatch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.txt")
	require.NoError(t, os.WriteFile(path, []byte("road shipments\ndelivered\n"), 0o600))

	out, err := run(t, "", "batch", path, "--all-dates")
	require.NoError(t, err)
	assert.Contains(t, out, "Q: road shipments")
	assert.Contains(t, out, "---")
	assert.Contains(t, out, "Q: delivered")
}

func TestSchema_Text(t *testing.T) {
	out, err := run(t, "", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "9 rows")
	assert.Contains(t, out, "supplier")
	assert.Contains(t, out, "Acme Components")
	assert.Contains(t, out, "total_landed_cost")
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad format", []string{"ask", "air", "--format", "xml"}, "invalid --format"},
		{"bad today", []string{"ask", "air", "--today", "tomorrow"}, "invalid --today"},
		{"bad provider", []string{"ask", "air", "--provider", "openai"}, "invalid planner provider"},
		{"bad from", []string{"ask", "air", "--from", "10/01/2026"}, "invalid --from"},
		{"plan csv", []string{"plan", "air", "--format", "csv"}, "no csv form"},
		{"batch empty", []string{"batch"}, "no questions"},
		{"missing data", []string{"schema", "--data", "/nonexistent/ships.csv"}, "open dataset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", tt.args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestReadQuestions(t *testing.T) {
	got, err := readQuestions(strings.NewReader("  first \n#skip\n\n second\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestBaseFlags(t *testing.T) {
	view := enginetest.NewSliceView([]enginetest.Record{
		{Dimensions: map[string]string{"po_date": "2026-05-01"}},
	})

	b := baseFlags{supplier: insight.All, to: "2026-06-30"}
	got, err := b.filter(view)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), got.From)
	assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), got.To)
	assert.Equal(t, insight.All, got.Supplier)

	b = baseFlags{allDates: true, mode: "Air"}
	got, err = b.filter(view)
	require.NoError(t, err)
	assert.True(t, got.From.IsZero())
	assert.Equal(t, "Air", got.Mode)
}

func TestSetup_ProviderFlagPicksItsToken(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"gemini", "gemini-key"},
		{"Gemini", "gemini-key"},
		{"router", "hf-token"},
		{"heuristic", ""},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Setenv("HF_TOKEN", "hf-token")
			t.Setenv("GEMINI_API_KEY", "gemini-key")
			t.Setenv("LLM_PROVIDER", "router")
			t.Setenv("LLM_MODEL", "")
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte("secrets_path: "+filepath.Join(dir, "none.yaml")+"\n"), 0o600))

			a := &app{provider: tt.provider, format: "text", configPath: path}
			require.NoError(t, a.setup(&cobra.Command{}))

			assert.Equal(t, strings.ToLower(tt.provider), a.cfg.Planner.Provider)
			assert.Equal(t, tt.want, a.cfg.Planner.APIKey)
		})
	}
}

func TestTranslator_WarnsWithoutToken(t *testing.T) {
	tests := []struct {
		provider string
		apiKey   string
		warned   bool
	}{
		{config.ProviderRouter, "", true},
		{config.ProviderGemini, "", true},
		{config.ProviderRouter, "hf-token", false},
		{config.ProviderHeuristic, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.apiKey, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			cfg := config.DefaultConfig()
			cfg.Planner.Provider = tt.provider
			cfg.Planner.APIKey = tt.apiKey
			a := &app{cfg: cfg, logger: zap.New(core), now: time.Now}

			tr, err := a.translator(context.Background())
			require.NoError(t, err)
			require.NotNil(t, tr)

			warned := logs.FilterMessageSnippet("no API token").Len() > 0
			assert.Equal(t, tt.warned, warned)
		})
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")

	out, err := run(t, "", "init", "--config", path, "--model", "my/model")
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", out)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderHeuristic, cfg.Planner.Provider)
	assert.Equal(t, "my/model", cfg.Planner.Model)
	assert.True(t, strings.HasSuffix(cfg.Dataset.Path, "shipments.csv"))
	assert.Empty(t, cfg.Planner.APIKey)

	_, err = run(t, "", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "", "init", "--config", path, "--force")
	require.NoError(t, err)
}
