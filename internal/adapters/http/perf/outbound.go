package perf

import (
	"context"
	"net/http"
	"time"
)

type outboundStartKey struct{}

// OutboundPlugin records every outbound HTTP attempt as a KindOutbound entry.
// It satisfies heimdall.Plugin; each retry is recorded on its own.
type OutboundPlugin struct {
	collector *Collector
	label     string
}

// NewOutboundPlugin labels entries as "<label> <METHOD> <path>", e.g. "razorpay POST /v1/orders".
func NewOutboundPlugin(collector *Collector, label string) *OutboundPlugin {
	return &OutboundPlugin{collector: collector, label: label}
}

func (p *OutboundPlugin) OnRequestStart(req *http.Request) {
	ctx := context.WithValue(req.Context(), outboundStartKey{}, time.Now())
	*req = *req.WithContext(ctx)
}

func (p *OutboundPlugin) OnRequestEnd(req *http.Request, res *http.Response) {
	status := 0
	if res != nil {
		status = res.StatusCode
	}
	p.record(req, status)
}

// OnError records transport failures with status 0.
func (p *OutboundPlugin) OnError(req *http.Request, _ error) {
	p.record(req, 0)
}

func (p *OutboundPlugin) record(req *http.Request, status int) {
	if p.collector == nil {
		return
	}
	start, ok := req.Context().Value(outboundStartKey{}).(time.Time)
	if !ok {
		return
	}
	p.collector.Record(Entry{
		Kind:       KindOutbound,
		Path:       p.label + " " + req.Method + " " + req.URL.Path,
		StatusCode: status,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:  start,
	})
}
