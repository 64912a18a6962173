/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package debounce provides a trailing-edge debouncer.
//
// Every call cancels the pending invocation and schedules a new one after the wait period,
// so a burst of calls results in a single invocation with the arguments of the last call,
// made once the calls have stopped for the whole wait period.
package debounce
