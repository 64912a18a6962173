/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package reporting provides diagnostic sinks for failures that are not returned to callers.
// A Reporter receives a message and the error; implementations log it (NewLogReporter),
// capture it in Sentry (NewSentryReporter) or fan it out to several sinks (Multi).
package reporting
