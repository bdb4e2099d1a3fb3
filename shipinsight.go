// Package shipinsight answers natural-language questions about procurement
// and shipment data.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/shipinsight/dataset"
//	    "github.com/spektr-org/shipinsight/insight"
//	    "github.com/spektr-org/shipinsight/translator"
//	)
//
//	ds, err := dataset.LoadFile("shipments.csv")
//	tr := translator.NewRemote(translator.NewRouter(translator.RouterConfig{Token: token}, logger))
//	svc := insight.New(ds.View(), ds.Schema(), tr)
//	ans, err := svc.Ask(ctx, insight.Request{Question: "top 5 suppliers by spend last quarter"})
//
// A question becomes an engine.Plan (time window, filters, top-N limit).
// Remote planners are optional: without a token, or on any remote failure,
// the rule-based planner in translator produces the plan. The engine never
// calls any external service; all computation is local.
package shipinsight
