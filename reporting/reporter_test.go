/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reporting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-fetchkit/log"
	"github.com/acronis/go-fetchkit/log/logtest"
)

func TestLogReporter(t *testing.T) {
	rec := logtest.NewRecorder()
	reporter := NewLogReporter(rec)

	ctx := AddTagsToContext(context.Background(), map[string]string{"dataset": "ds-1"})
	ctx = AddExtrasToContext(ctx, map[string]string{"panel": "cleanup"})
	reportedErr := errors.New("request timeout")
	reporter.Report(ctx, "failed to fetch item", reportedErr)

	entry, found := rec.FindEntry("failed to fetch item")
	require.True(t, found)
	require.Equal(t, log.LevelError, entry.Level)

	errField, found := entry.FindField("error")
	require.True(t, found)
	require.Equal(t, log.Error(reportedErr), *errField)

	tagField, found := entry.FindField("dataset")
	require.True(t, found)
	require.Equal(t, log.String("dataset", "ds-1"), *tagField)

	_, found = entry.FindField("panel")
	require.True(t, found)
}

func TestLogReporterNilLogger(t *testing.T) {
	NewLogReporter(nil).Report(context.Background(), "ignored", errors.New("boom"))
}

func TestMulti(t *testing.T) {
	var got []string
	first := ReporterFunc(func(_ context.Context, msg string, _ error) { got = append(got, "first: "+msg) })
	second := ReporterFunc(func(_ context.Context, msg string, _ error) { got = append(got, "second: "+msg) })

	Multi(first, nil, second).Report(context.Background(), "lookup failed", errors.New("boom"))
	require.Equal(t, []string{"first: lookup failed", "second: lookup failed"}, got)
}

func TestMetaFromContext(t *testing.T) {
	ctx := AddTagsToContext(context.Background(), map[string]string{"a": "1"})
	child := AddTagsToContext(ctx, map[string]string{"b": "2"})

	require.Equal(t, map[string]string{"a": "1"}, MetaFromContext(ctx).Tags())
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, MetaFromContext(child).Tags())
	require.Empty(t, MetaFromContext(context.Background()).Extras())
}
