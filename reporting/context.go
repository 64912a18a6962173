/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reporting

import (
	"context"
	"maps"
)

type metaContextKey struct{}

// Meta holds tags and extras attached to reports made with a context.
type Meta struct {
	tags   map[string]string
	extras map[string]string
}

// Tags returns a copy of the tags.
func (m Meta) Tags() map[string]string {
	return maps.Clone(m.tags)
}

// Extras returns a copy of the extras.
func (m Meta) Extras() map[string]string {
	return maps.Clone(m.extras)
}

// MetaFromContext returns a copy of the reporting meta stored in ctx.
func MetaFromContext(ctx context.Context) Meta {
	meta, ok := ctx.Value(metaContextKey{}).(Meta)
	if !ok {
		return Meta{tags: map[string]string{}, extras: map[string]string{}}
	}
	return Meta{tags: maps.Clone(meta.tags), extras: maps.Clone(meta.extras)}
}

// AddTagsToContext returns a context whose reports carry the given tags (in addition to the already present ones).
func AddTagsToContext(ctx context.Context, tags map[string]string) context.Context {
	meta := MetaFromContext(ctx)
	maps.Copy(meta.tags, tags)
	return context.WithValue(ctx, metaContextKey{}, meta)
}

// AddExtrasToContext returns a context whose reports carry the given extras (in addition to the already present ones).
func AddExtrasToContext(ctx context.Context, extras map[string]string) context.Context {
	meta := MetaFromContext(ctx)
	maps.Copy(meta.extras, extras)
	return context.WithValue(ctx, metaContextKey{}, meta)
}
