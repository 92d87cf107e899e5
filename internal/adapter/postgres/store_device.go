package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deviceline/inventory/internal/domain"
	"github.com/deviceline/inventory/internal/domain/device"
	"github.com/deviceline/inventory/internal/port/store"
)

// --- Devices ---

func (s *Store) GetDevices(ctx context.Context, q store.ListQuery) ([]device.Device, int, error) {
	schema := schemaFromCtx(ctx)
	listSQL, listArgs, countSQL, countArgs := buildDeviceList(schema, q)

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count devices: %w", err)
	}

	rows, err := s.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devs []device.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, 0, err
		}
		devs = append(devs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := s.loadAttributes(ctx, schema, devs); err != nil {
		return nil, 0, err
	}
	return devs, total, nil
}

func (s *Store) GetDevice(ctx context.Context, id string) (*device.Device, error) {
	schema := schemaFromCtx(ctx)

	row := s.pool.QueryRow(ctx,
		"SELECT d.id, d.group_name, d.revision, d.created_at, d.updated_at FROM "+
			ident(schema)+".devices d WHERE d.id = $1", id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get device %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get device %s: %w", id, err)
	}

	devs := []device.Device{d}
	if err := s.loadAttributes(ctx, schema, devs); err != nil {
		return nil, err
	}
	return &devs[0], nil
}

func (s *Store) AddDevice(ctx context.Context, dev *device.Device) error {
	schema := schemaFromCtx(ctx)
	if dev.Revision == "" {
		dev.Revision = uuid.NewString()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		"INSERT INTO "+ident(schema)+".devices (id, group_name, revision) VALUES ($1, NULLIF($2, ''), $3)"+
			" ON CONFLICT (id) DO UPDATE SET updated_at = now()",
		dev.ID, dev.Group, dev.Revision)
	if err != nil {
		return fmt.Errorf("add device %s: %w", dev.ID, err)
	}

	attrs := make([]device.Attribute, 0, len(dev.Attributes))
	for _, a := range dev.Attributes {
		attrs = append(attrs, a)
	}
	if err := upsertAttributesTx(ctx, tx, schema, dev.ID, attrs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) DeleteDevice(ctx context.Context, id string) error {
	schema := schemaFromCtx(ctx)

	tag, err := s.pool.Exec(ctx, "DELETE FROM "+ident(schema)+".devices WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete device %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete device %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) UpsertAttributes(ctx context.Context, id string, attrs []device.Attribute) error {
	schema := schemaFromCtx(ctx)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		"INSERT INTO "+ident(schema)+".devices (id, revision) VALUES ($1, $2)"+
			" ON CONFLICT (id) DO UPDATE SET updated_at = now()",
		id, uuid.NewString())
	if err != nil {
		return fmt.Errorf("upsert device %s: %w", id, err)
	}

	if err := upsertAttributesTx(ctx, tx, schema, id, attrs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpsertTags writes tag-scope attributes under the device's revision guard.
// The row lock plus the revision predicate on the final UPDATE make the
// compare-and-swap a single atomic transition.
func (s *Store) UpsertTags(ctx context.Context, id string, attrs []device.Attribute, ifMatch string, replace bool) (string, error) {
	schema := schemaFromCtx(ctx)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx,
		"SELECT revision FROM "+ident(schema)+".devices WHERE id = $1 FOR UPDATE", id,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("update tags %s: %w", id, domain.ErrNotFound)
		}
		return "", fmt.Errorf("update tags %s: %w", id, err)
	}
	if ifMatch != "" && ifMatch != current {
		return "", fmt.Errorf("update tags %s: %w", id, domain.ErrPreconditionFailed)
	}

	if replace {
		_, err = tx.Exec(ctx,
			"DELETE FROM "+ident(schema)+".attributes WHERE device_id = $1 AND scope = $2",
			id, device.ScopeTags)
		if err != nil {
			return "", fmt.Errorf("replace tags %s: %w", id, err)
		}
	}

	if err := upsertAttributesTx(ctx, tx, schema, id, attrs); err != nil {
		return "", err
	}

	// Enforce the live-tag cap, keeping the oldest tags by insertion order.
	_, err = tx.Exec(ctx,
		"DELETE FROM "+ident(schema)+".attributes WHERE device_id = $1 AND scope = $2 AND ord NOT IN"+
			" (SELECT ord FROM "+ident(schema)+".attributes WHERE device_id = $1 AND scope = $2 ORDER BY ord LIMIT $3)",
		id, device.ScopeTags, device.MaxTags)
	if err != nil {
		return "", fmt.Errorf("cap tags %s: %w", id, err)
	}

	next := uuid.NewString()
	tag, err := tx.Exec(ctx,
		"UPDATE "+ident(schema)+".devices SET revision = $1, updated_at = now() WHERE id = $2 AND revision = $3",
		next, id, current)
	if err != nil {
		return "", fmt.Errorf("bump revision %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("bump revision %s: %w", id, domain.ErrPreconditionFailed)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return next, nil
}

func (s *Store) GetFilterAttributes(ctx context.Context) ([]store.AttributeUsage, error) {
	schema := schemaFromCtx(ctx)

	rows, err := s.pool.Query(ctx,
		"SELECT scope, name, COUNT(DISTINCT device_id) FROM "+ident(schema)+".attributes"+
			" GROUP BY scope, name ORDER BY 3 DESC, scope, name")
	if err != nil {
		return nil, fmt.Errorf("filter attributes: %w", err)
	}
	defer rows.Close()

	var out []store.AttributeUsage
	for rows.Next() {
		var u store.AttributeUsage
		if err := rows.Scan(&u.Scope, &u.Name, &u.Count); err != nil {
			return nil, fmt.Errorf("scan attribute usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// --- helpers ---

func scanDevice(row pgx.Row) (device.Device, error) {
	var d device.Device
	var group *string
	if err := row.Scan(&d.ID, &group, &d.Revision, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return d, err
	}
	if group != nil {
		d.Group = *group
	}
	return d, nil
}

// loadAttributes fetches and attaches the attribute sets for devs in one
// round trip, ordered by insertion so tag truncation stays deterministic.
func (s *Store) loadAttributes(ctx context.Context, schema string, devs []device.Device) error {
	if len(devs) == 0 {
		return nil
	}
	byID := make(map[string]*device.Device, len(devs))
	ids := make([]string, len(devs))
	for i := range devs {
		devs[i].Attributes = device.Attributes{}
		byID[devs[i].ID] = &devs[i]
		ids[i] = devs[i].ID
	}

	rows, err := s.pool.Query(ctx,
		"SELECT device_id, scope, name, description, value_str, value_num, value_strs, value_nums FROM "+
			ident(schema)+".attributes WHERE device_id = ANY($1) ORDER BY ord", ids)
	if err != nil {
		return fmt.Errorf("load attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var devID string
		var a device.Attribute
		var valueStr *string
		var valueNum *float64
		var valueStrs []string
		var valueNums []float64
		if err := rows.Scan(&devID, &a.Scope, &a.Name, &a.Description,
			&valueStr, &valueNum, &valueStrs, &valueNums); err != nil {
			return fmt.Errorf("scan attribute: %w", err)
		}
		a.Value = decodeValue(valueStr, valueNum, valueStrs, valueNums)
		if d := byID[devID]; d != nil {
			d.Attributes[device.Key{Scope: a.Scope, Name: a.Name}] = a
		}
	}
	return rows.Err()
}

func upsertAttributesTx(ctx context.Context, tx pgx.Tx, schema, id string, attrs []device.Attribute) error {
	for _, a := range attrs {
		valueStr, valueNum, valueStrs, valueNums, err := encodeValue(a.Value)
		if err != nil {
			return fmt.Errorf("attribute %s/%s: %w", a.Scope, a.Name, err)
		}
		_, err = tx.Exec(ctx,
			"INSERT INTO "+ident(schema)+".attributes"+
				" (device_id, scope, name, description, value_str, value_num, value_strs, value_nums)"+
				" VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"+
				" ON CONFLICT (device_id, scope, name) DO UPDATE SET"+
				" description = EXCLUDED.description, value_str = EXCLUDED.value_str,"+
				" value_num = EXCLUDED.value_num, value_strs = EXCLUDED.value_strs,"+
				" value_nums = EXCLUDED.value_nums",
			id, a.Scope, a.Name, a.Description, valueStr, valueNum, valueStrs, valueNums)
		if err != nil {
			return fmt.Errorf("upsert attribute %s/%s: %w", a.Scope, a.Name, err)
		}
	}
	return nil
}

// encodeValue splits a validated attribute value over the typed columns.
func encodeValue(v any) (*string, *float64, []string, []float64, error) {
	switch val := v.(type) {
	case string:
		return &val, nil, nil, nil, nil
	case float64:
		return nil, &val, nil, nil, nil
	case []any:
		if len(val) == 0 {
			return nil, nil, []string{}, nil, nil
		}
		if _, ok := val[0].(string); ok {
			out := make([]string, 0, len(val))
			for _, e := range val {
				s, ok := e.(string)
				if !ok {
					return nil, nil, nil, nil, errors.New("mixed array value")
				}
				out = append(out, s)
			}
			return nil, nil, out, nil, nil
		}
		out := make([]float64, 0, len(val))
		for _, e := range val {
			f, ok := e.(float64)
			if !ok {
				return nil, nil, nil, nil, errors.New("mixed array value")
			}
			out = append(out, f)
		}
		return nil, nil, nil, out, nil
	case []string:
		return nil, nil, val, nil, nil
	case []float64:
		return nil, nil, nil, val, nil
	default:
		return nil, nil, nil, nil, errors.New("unsupported attribute value type")
	}
}

func decodeValue(valueStr *string, valueNum *float64, valueStrs []string, valueNums []float64) any {
	switch {
	case valueStr != nil:
		return *valueStr
	case valueNum != nil:
		return *valueNum
	case valueStrs != nil:
		return valueStrs
	case valueNums != nil:
		return valueNums
	default:
		return nil
	}
}
