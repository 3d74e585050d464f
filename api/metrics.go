package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName        = "versionone-dashboard/api"
	reportSpanName    = "hours.report.request"
	reportEventName   = "hours.report"
	reportEventDomain = "dashboard"
	reportRoute       = "/api/reports/hours"
)

// reportRequestMetrics collects per-request timings and counters for the
// hours report endpoint and emits them as a single observability event: one
// structured log line plus a span event on the request span.
type reportRequestMetrics struct {
	logger *log.Logger
	span   trace.Span

	start            time.Time
	authDuration     time.Duration
	parseDuration    time.Duration
	pipelineDuration time.Duration
	encodeDuration   time.Duration
	rowsReceived     int
	rowsRejected     int
	unmatchedOwners  int
	snapshotSaved    bool
	errorStage       string
}

func newReportRequestMetrics(ctx context.Context, logger *log.Logger) (*reportRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, reportSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.route", reportRoute)),
	)
	m := &reportRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}
	return m, spanCtx
}

func (m *reportRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *reportRequestMetrics) ObserveParse(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.parseDuration = duration
}

func (m *reportRequestMetrics) ObservePipeline(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.pipelineDuration = duration
}

func (m *reportRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *reportRequestMetrics) SetRowsReceived(count int) {
	if count < 0 {
		count = 0
	}
	m.rowsReceived = count
}

func (m *reportRequestMetrics) SetRowsRejected(count int) {
	if count < 0 {
		count = 0
	}
	m.rowsRejected = count
}

func (m *reportRequestMetrics) SetUnmatchedOwners(count int) {
	if count < 0 {
		count = 0
	}
	m.unmatchedOwners = count
}

func (m *reportRequestMetrics) SetSnapshotSaved(saved bool) {
	m.snapshotSaved = saved
}

func (m *reportRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finalizes the request span and emits the observability event. It must
// be called exactly once per request.
func (m *reportRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", reportRoute),
		attribute.Float64("dashboard.report.total_ms", durationToMillis(time.Since(m.start))),
		attribute.Bool("dashboard.report.snapshot_saved", m.snapshotSaved),
		attribute.Int("dashboard.report.rows_received", m.rowsReceived),
		attribute.Int("dashboard.report.rows_rejected", m.rowsRejected),
		attribute.Int("dashboard.report.unmatched_owners", m.unmatchedOwners),
	}
	if m.authDuration > 0 {
		attrs = append(attrs, attribute.Float64("dashboard.report.auth_ms", durationToMillis(m.authDuration)))
	}
	if m.parseDuration > 0 {
		attrs = append(attrs, attribute.Float64("dashboard.report.parse_ms", durationToMillis(m.parseDuration)))
	}
	if m.pipelineDuration > 0 {
		attrs = append(attrs, attribute.Float64("dashboard.report.pipeline_ms", durationToMillis(m.pipelineDuration)))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("dashboard.report.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("dashboard.report.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	if m.span != nil {
		m.span.SetAttributes(append([]attribute.KeyValue{
			attribute.Int("http.status_code", status),
		}, attrs...)...)

		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", reportEventName),
			attribute.String("event.domain", reportEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))

		if err != nil || status >= 500 {
			desc := ""
			if err != nil {
				desc = err.Error()
			} else {
				desc = m.errorStage
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}

	fields := log.Fields{
		"event.name":      reportEventName,
		"event.domain":    reportEventDomain,
		"attributes":      attrMap,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	m.logger.WithFields(fields).Info("observability.event")
}

// severityForStatus maps an HTTP status and handler error to OpenTelemetry
// log severity text and number.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= 500:
		return "ERROR", 17
	case status >= 400:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
