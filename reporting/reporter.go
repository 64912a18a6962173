/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reporting

import (
	"context"

	"github.com/acronis/go-fetchkit/log"
)

// Reporter is a diagnostic sink.
type Reporter interface {
	Report(ctx context.Context, msg string, err error)
}

// The ReporterFunc type is an adapter to allow the use of ordinary functions as Reporter.
type ReporterFunc func(ctx context.Context, msg string, err error)

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, msg string, err error) {
	f(ctx, msg, err)
}

// LogReporter writes reported failures to the logger at error level.
type LogReporter struct {
	logger log.FieldLogger
}

// NewLogReporter creates a new LogReporter. A nil logger discards everything.
func NewLogReporter(logger log.FieldLogger) *LogReporter {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &LogReporter{logger: logger}
}

// Report implements Reporter.
func (r *LogReporter) Report(ctx context.Context, msg string, err error) {
	meta := MetaFromContext(ctx)
	fields := make([]log.Field, 0, len(meta.tags)+len(meta.extras)+1)
	fields = append(fields, log.Error(err))
	for k, v := range meta.tags {
		fields = append(fields, log.String(k, v))
	}
	for k, v := range meta.extras {
		fields = append(fields, log.String(k, v))
	}
	r.logger.Error(msg, fields...)
}

type multiReporter []Reporter

// Multi returns a Reporter that passes every report to all non-nil reporters in order.
func Multi(reporters ...Reporter) Reporter {
	res := make(multiReporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			res = append(res, r)
		}
	}
	return res
}

// Report implements Reporter.
func (m multiReporter) Report(ctx context.Context, msg string, err error) {
	for _, r := range m {
		r.Report(ctx, msg, err)
	}
}
