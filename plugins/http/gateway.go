package http

import (
	"context"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/BDNK1/credflow/runtime"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BDNK1/credflow/plugins/http"

// Config holds the gateway configuration with declarative tags
type Config struct {
	BaseURL string        `yaml:"base_url" validate:"required,url_format"`
	Timeout time.Duration `yaml:"timeout" default:"30s" validate:"gte=1s"`
	Debug   bool          `yaml:"debug" default:"false"`
}

// Gateway posts step values as JSON to BaseURL + endpoint. It makes one
// request per Submit; retries are disabled.
type Gateway struct {
	config Config
	client *resty.Client
	tracer trace.Tracer
	l      *slog.Logger
}

func NewGateway(cfg Config, l *slog.Logger) (*Gateway, error) {
	if err := runtime.InitializeConfig(&cfg, nil); err != nil {
		return nil, fmt.Errorf("invalid gateway config: %w", err)
	}
	if l == nil {
		l = slog.Default()
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetDebug(cfg.Debug).
		SetLogger(restyLogger{l: l}).
		OnRequestLog(redactRequestLog).
		OnResponseLog(redactResponseLog)

	return &Gateway{
		config: cfg,
		client: client,
		tracer: otel.Tracer(instrumentationName),
		l:      l,
	}, nil
}

// Submit implements runtime.Gateway. Any completed 2xx response is a
// success whatever its body says; the body is handed back untouched.
func (g *Gateway) Submit(ctx context.Context, endpoint string, values runtime.FieldValues) runtime.Outcome {
	url := g.url(endpoint)

	ctx, span := g.tracer.Start(ctx, "credflow.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", nethttp.MethodPost),
			attribute.String("credflow.endpoint", endpoint),
		))
	defer span.End()

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]string(values)).
		Post(url)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		g.l.WarnContext(ctx, "HTTP request failed", "endpoint", endpoint, "error", err)
		return runtime.FailureOutcome(runtime.FailureNetwork, 0, fmt.Errorf("HTTP request failed: %w", err))
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if resp.IsSuccess() {
		return runtime.SuccessOutcome(status, resp.Body())
	}

	span.SetStatus(codes.Error, resp.Status())
	err = fmt.Errorf("unexpected response status %s", resp.Status())
	return runtime.FailureOutcome(classify(status), status, err)
}

// Debug dumps keep method, URL and headers. Request bodies carry the
// entered field values and response bodies may echo them back.
const redacted = "<redacted>"

func redactRequestLog(rl *resty.RequestLog) error {
	rl.Body = redacted
	return nil
}

func redactResponseLog(rl *resty.ResponseLog) error {
	rl.Body = redacted
	return nil
}

// restyLogger routes resty's own output through slog.
type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...any) {
	r.l.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (r restyLogger) Warnf(format string, v ...any) {
	r.l.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (r restyLogger) Debugf(format string, v ...any) {
	r.l.Debug(fmt.Sprintf(format, v...), "component", "resty")
}

func (g *Gateway) url(endpoint string) string {
	return strings.TrimRight(g.config.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// classify maps a non-2xx status to a failure kind.
func classify(status int) runtime.FailureKind {
	switch status {
	case nethttp.StatusBadRequest, nethttp.StatusUnprocessableEntity:
		return runtime.FailureRejected
	default:
		return runtime.FailureUnknown
	}
}
