/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides the structured logger used across go-fetchkit.
// It wraps github.com/ssgreg/logf and supports JSON and text formats
// with stdout, stderr or rotated file (lumberjack) outputs.
package log
