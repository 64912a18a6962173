/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reporting

import (
	"context"
	"errors"
	"regexp"

	"github.com/getsentry/sentry-go"

	"github.com/acronis/go-fetchkit/internal/libinfo"
	"github.com/acronis/go-fetchkit/log"
)

var (
	uuidRx     = regexp.MustCompile(`[0-9a-fA-F]{8}-?([0-9a-fA-F]{4}-?){3}[0-9a-fA-F]{12}`)
	objectIDRx = regexp.MustCompile(`\b[0-9a-f]{24}\b`)
)

// sanitizeError replaces item identifiers so that failures for different items are grouped together.
func sanitizeError(err string) string {
	err = uuidRx.ReplaceAllString(err, "<id>")
	err = objectIDRx.ReplaceAllString(err, "<id>")
	return err
}

// SentryReporter captures reported failures as Sentry exceptions.
type SentryReporter struct {
	hub    *sentry.Hub
	logger log.FieldLogger
}

// NewSentryReporter creates a new SentryReporter.
// The hub attached to the report context (sentry.SetHubOnContext) takes precedence over hub.
// Reports are still written to logger at error level.
func NewSentryReporter(hub *sentry.Hub, logger log.FieldLogger) *SentryReporter {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &SentryReporter{hub: hub, logger: logger}
}

// Report implements Reporter.
func (r *SentryReporter) Report(ctx context.Context, msg string, err error) {
	if err == nil {
		err = errors.New("no error provided")
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = r.hub
	}
	if hub == nil {
		r.logger.Warn("failed to get Sentry hub, report is only logged", log.String("report", msg), log.Error(err))
		return
	}

	r.logger.Error("reporting error to Sentry", log.String("report", msg), log.Error(err))

	meta := MetaFromContext(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(meta.tags)
		scope.SetTag(libinfo.SentryLibVersionTag, libinfo.GetLibVersion())
		for key, value := range meta.extras {
			scope.SetExtra(key, value)
		}
		scope.SetExtra("message", msg)
		scope.SetFingerprint([]string{"{{ default }}", sanitizeError(err.Error())})
		hub.CaptureException(err)
	})
}
