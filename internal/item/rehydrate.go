// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package item

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/holoplace/internal/world"
)

// Restorer accepts persisted objects back into the world. *world.Space
// implements it.
type Restorer interface {
	Restore(obj *world.Object) error
}

// Rehydrate restores persisted placed items into the world at startup.
// Items whose template is no longer in the catalog are skipped with a
// warning; any other restore failure aborts.
func Rehydrate(ctx context.Context, dst Restorer, registry Registry, items []*world.PlacedItem) (int, error) {
	restored := 0
	for _, placed := range items {
		tmpl, ok := registry.Resolve(placed.TemplateID)
		if !ok {
			slog.WarnContext(ctx, "placed item references unknown template, skipping",
				"instance_id", placed.InstanceID.String(),
				"template_id", placed.TemplateID)
			continue
		}
		if err := dst.Restore(placed.Object(tmpl.Geometry)); err != nil {
			return restored, oops.Code("REHYDRATE_FAILED").
				With("instance_id", placed.InstanceID.String()).
				With("template_id", placed.TemplateID).
				Wrap(err)
		}
		restored++
	}
	slog.InfoContext(ctx, "placed items restored", "count", restored, "skipped", len(items)-restored)
	return restored, nil
}
