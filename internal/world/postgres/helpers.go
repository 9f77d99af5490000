// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoplace/internal/placement"
	"github.com/holomush/holoplace/internal/world"
)

const placedItemColumns = `instance_id, object_id, owner_id, template_id, parent_id,
		       pos_x, pos_y, pos_z, yaw, created_at`

// parseULIDColumn parses a ULID column value, wrapping errors with the column name.
func parseULIDColumn(value, column string) (ulid.ULID, error) {
	id, err := ulid.Parse(value)
	if err != nil {
		return ulid.ULID{}, oops.With("operation", "parse "+column).With(column, value).Wrap(err)
	}
	return id, nil
}

// scanPlacedItem scans one placed_items row selected with placedItemColumns.
func scanPlacedItem(row pgx.Row) (*world.PlacedItem, error) {
	var (
		item                                     world.PlacedItem
		instanceStr, objectStr, ownerStr, parent string
		pos                                      placement.Vec3
	)
	if err := row.Scan(&instanceStr, &objectStr, &ownerStr, &item.TemplateID, &parent,
		&pos.X, &pos.Y, &pos.Z, &item.Pose.Yaw, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.Pose.Position = pos

	var err error
	if item.InstanceID, err = parseULIDColumn(instanceStr, "instance_id"); err != nil {
		return nil, err
	}
	if item.ObjectID, err = parseULIDColumn(objectStr, "object_id"); err != nil {
		return nil, err
	}
	if item.OwnerID, err = parseULIDColumn(ownerStr, "owner_id"); err != nil {
		return nil, err
	}
	if item.ParentID, err = parseULIDColumn(parent, "parent_id"); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanPlacedItems(rows pgx.Rows) ([]*world.PlacedItem, error) {
	var items []*world.PlacedItem
	for rows.Next() {
		item, err := scanPlacedItem(rows)
		if err != nil {
			return nil, oops.With("operation", "scan placed item").Wrap(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate placed items").Wrap(err)
	}
	return items, nil
}
