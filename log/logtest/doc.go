/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides implementations of log.FieldLogger for tests.
// Recorder keeps every logged entry in memory so tests can assert on messages and fields.
package logtest
