/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package fetchcache provides a keyed, permanently memoizing fetch cache with single-flight semantics
// and bounded retries.
//
// For every key at most one remote lookup is in flight at a time: concurrent callers asking for the same key
// share the same call, and a successful result is kept forever, so later callers get it without any remote
// round trip. A failed lookup is retried after a fixed delay up to a configured number of attempts.
// When no attempts remain, the failure is passed to a reporting.Reporter and the caller gets an absent result.
// Fetching never returns errors and never panics.
//
// How failed calls are treated on retry is controlled by RetryMode.
// With RetryModeFreshAttempt (default) a failed registration is dropped once the failure is observed,
// so each retry starts a new remote lookup. With RetryModeReuseAttempt the failed call stays registered
// and retries re-await its outcome, which means the remote lookup is never repeated for the key.
package fetchcache
