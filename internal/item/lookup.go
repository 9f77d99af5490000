// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package item

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/holoplace/internal/world"
)

// GetItem waits for the placed item stamped with instanceID and returns its
// handle. The wait is bounded by the engine's lookup timeout and by ctx.
// It returns a TIMEOUT error when the bound expires and NOT_FOUND when the
// object exists without a resolvable handle or ctx is cancelled.
func (e *Engine) GetItem(ctx context.Context, instanceID ulid.ULID) (h *world.Handle, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "item.get",
		trace.WithAttributes(attribute.String("instance.id", instanceID.String())),
	)
	defer func() {
		recordLookup(statusOf(err), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	waitCtx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	objectID, err := e.binder.Await(waitCtx, instanceID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errTimeout(instanceID, err)
		}
		return nil, errItemNotFound(instanceID, err)
	}

	h, ok := e.binder.Bind(objectID)
	if !ok {
		return nil, errItemNotFound(instanceID, nil)
	}
	return h, nil
}
