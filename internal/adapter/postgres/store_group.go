package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/deviceline/inventory/internal/domain"
)

// --- Groups ---

// UpdateDeviceGroup moves the device into group. A single UPDATE both
// removes the old membership and adds the new one, so no observer ever sees
// the device in two groups.
func (s *Store) UpdateDeviceGroup(ctx context.Context, id string, group string) error {
	schema := schemaFromCtx(ctx)

	tag, err := s.pool.Exec(ctx,
		"UPDATE "+ident(schema)+".devices SET group_name = $1, updated_at = now() WHERE id = $2",
		group, id)
	if err != nil {
		return fmt.Errorf("assign group %s to %s: %w", group, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assign group %s to %s: %w", group, id, domain.ErrNotFound)
	}
	return nil
}

// UnsetDeviceGroup clears the device's group only when it currently belongs
// to groupName. A missing device and a wrong group are the same not-found
// condition to the caller.
func (s *Store) UnsetDeviceGroup(ctx context.Context, id string, groupName string) error {
	schema := schemaFromCtx(ctx)

	tag, err := s.pool.Exec(ctx,
		"UPDATE "+ident(schema)+".devices SET group_name = NULL, updated_at = now()"+
			" WHERE id = $1 AND group_name = $2",
		id, groupName)
	if err != nil {
		return fmt.Errorf("unset group %s on %s: %w", groupName, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unset group %s on %s: %w", groupName, id, domain.ErrGroupNotFound)
	}
	return nil
}

// ListGroups returns group names with at least one member. Groups exist
// only through membership, so empty groups are gone by construction.
func (s *Store) ListGroups(ctx context.Context) ([]string, error) {
	schema := schemaFromCtx(ctx)

	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT group_name FROM "+ident(schema)+".devices"+
			" WHERE group_name IS NOT NULL ORDER BY group_name")
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) GetDevicesByGroup(ctx context.Context, group string, skip, limit int) ([]string, int, error) {
	schema := schemaFromCtx(ctx)

	var total int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM "+ident(schema)+".devices WHERE group_name = $1", group,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count group %s: %w", group, err)
	}

	rows, err := s.pool.Query(ctx,
		"SELECT id FROM "+ident(schema)+".devices WHERE group_name = $1 ORDER BY id LIMIT $2 OFFSET $3",
		group, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list group %s: %w", group, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("scan device id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, total, rows.Err()
}

func (s *Store) GetDeviceGroup(ctx context.Context, id string) (string, error) {
	schema := schemaFromCtx(ctx)

	var group *string
	err := s.pool.QueryRow(ctx,
		"SELECT group_name FROM "+ident(schema)+".devices WHERE id = $1", id,
	).Scan(&group)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("get group of %s: %w", id, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get group of %s: %w", id, err)
	}
	if group == nil {
		return "", nil
	}
	return *group, nil
}
