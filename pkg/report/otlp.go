// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package report sends the outcome of an extension load pass to an OTLP
// collector as log records.
package report

import (
	"context"
	"fmt"
	"runtime"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	_ "google.golang.org/grpc/encoding/gzip" // Register gzip compressor

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"

	"github.com/mbeema/modloader/pkg/config"
	"github.com/mbeema/modloader/pkg/extension"
)

const scopeName = "modloader"

// Resource identifies the host process a report comes from.
type Resource struct {
	HostName string // executable name without extension
	PID      int32
	Version  string
}

// Exporter sends load reports via OTLP gRPC.
type Exporter struct {
	logger   *zap.Logger
	endpoint string
	conn     *grpc.ClientConn
	logSvc   collogspb.LogsServiceClient
}

// New creates an exporter for cfg.Endpoint. The connection is established
// lazily by the first Report.
func New(cfg config.ReportConfig, logger *zap.Logger, extra ...grpc.DialOption) (*Exporter, error) {
	opts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(4 * 1024 * 1024)),
	}
	if cfg.Insecure {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	if cfg.Compression == "" || cfg.Compression == "gzip" {
		opts = append(opts, grpc.WithDefaultCallOptions(grpc.UseCompressor("gzip")))
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial OTLP endpoint %s: %w", cfg.Endpoint, err)
	}
	return &Exporter{
		logger:   logger,
		endpoint: cfg.Endpoint,
		conn:     conn,
		logSvc:   collogspb.NewLogsServiceClient(conn),
	}, nil
}

// Report exports one record per extension outcome followed by a summary
// record.
func (e *Exporter) Report(ctx context.Context, res Resource, sum extension.Summary) error {
	now := uint64(time.Now().UnixNano())

	records := make([]*logspb.LogRecord, 0, len(sum.Outcomes)+1)
	for _, o := range sum.Outcomes {
		records = append(records, outcomeRecord(o, now))
	}
	records = append(records, summaryRecord(sum, now))

	req := &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{{
			Resource: resource(res),
			ScopeLogs: []*logspb.ScopeLogs{{
				Scope:      &commonpb.InstrumentationScope{Name: scopeName, Version: res.Version},
				LogRecords: records,
			}},
		}},
	}

	resp, err := e.logSvc.Export(ctx, req)
	if err != nil {
		return fmt.Errorf("export load report to %s: %w", e.endpoint, err)
	}
	if ps := resp.GetPartialSuccess(); ps != nil && ps.GetRejectedLogRecords() > 0 {
		e.logger.Warn("collector rejected part of the load report",
			zap.Int64("rejected", ps.GetRejectedLogRecords()),
			zap.String("message", ps.GetErrorMessage()),
		)
	}
	e.logger.Debug("load report sent", zap.Int("records", len(records)))
	return nil
}

// Shutdown closes the connection.
func (e *Exporter) Shutdown() error {
	return e.conn.Close()
}

func resource(res Resource) *resourcepb.Resource {
	attrs := []*commonpb.KeyValue{
		strAttr("service.name", scopeName),
		strAttr("telemetry.sdk.name", scopeName),
		strAttr("telemetry.sdk.language", "go"),
		strAttr("host.arch", runtime.GOARCH),
		strAttr("process.executable.name", res.HostName),
		intAttr("process.pid", int64(res.PID)),
	}
	if res.Version != "" {
		attrs = append(attrs, strAttr("service.version", res.Version))
	}
	return &resourcepb.Resource{Attributes: attrs}
}

func outcomeRecord(o extension.Outcome, ts uint64) *logspb.LogRecord {
	sev, text := severity(o.Result)
	r := &logspb.LogRecord{
		TimeUnixNano:         ts,
		ObservedTimeUnixNano: ts,
		SeverityNumber:       sev,
		SeverityText:         text,
		Body:                 &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "extension " + o.Result.String()}},
		Attributes: []*commonpb.KeyValue{
			strAttr("extension.name", o.Extension),
			strAttr("extension.result", o.Result.String()),
		},
	}
	if o.Entry != "" {
		r.Attributes = append(r.Attributes, strAttr("extension.entry", o.Entry))
	}
	if o.Module != "" {
		r.Attributes = append(r.Attributes, strAttr("extension.module", o.Module))
	}
	if o.Reason != "" {
		r.Attributes = append(r.Attributes, strAttr("extension.reason", o.Reason))
	}
	return r
}

func summaryRecord(sum extension.Summary, ts uint64) *logspb.LogRecord {
	sev, text := logspb.SeverityNumber_SEVERITY_NUMBER_INFO, "INFO"
	if sum.Failed > 0 {
		sev, text = logspb.SeverityNumber_SEVERITY_NUMBER_WARN, "WARN"
	}
	return &logspb.LogRecord{
		TimeUnixNano:         ts,
		ObservedTimeUnixNano: ts,
		SeverityNumber:       sev,
		SeverityText:         text,
		Body:                 &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "extension load complete"}},
		Attributes: []*commonpb.KeyValue{
			intAttr("extensions.discovered", sum.Discovered),
			intAttr("extensions.loaded", sum.Loaded),
			intAttr("extensions.failed", sum.Failed),
			intAttr("extensions.skipped", sum.Skipped),
			intAttr("load.duration_ms", sum.Elapsed.Milliseconds()),
		},
	}
}

// severity mirrors the level each result is logged at locally.
func severity(r extension.Result) (logspb.SeverityNumber, string) {
	switch r {
	case extension.Loaded:
		return logspb.SeverityNumber_SEVERITY_NUMBER_INFO, "INFO"
	case extension.EntryThrew:
		return logspb.SeverityNumber_SEVERITY_NUMBER_ERROR, "ERROR"
	default:
		return logspb.SeverityNumber_SEVERITY_NUMBER_WARN, "WARN"
	}
}

func strAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: sanitizeUTF8(value)}},
	}
}

func intAttr(key string, value int64) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: value}},
	}
}

// sanitizeUTF8 keeps protobuf marshaling from failing on manifest text in
// a legacy encoding.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return string([]rune(s))
}
