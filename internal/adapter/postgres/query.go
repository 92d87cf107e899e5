package postgres

import (
	"fmt"
	"strings"

	"github.com/deviceline/inventory/internal/port/store"
)

// queryBuilder accumulates positional arguments while composing SQL.
type queryBuilder struct {
	args []any
}

// arg registers v and returns its positional placeholder.
func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// buildDeviceList renders the paged device listing and the matching count
// query for q, each with its own argument list. Filters become EXISTS
// subqueries against the attributes table; sorting LEFT JOINs the sort
// attribute so devices missing it are kept and ordered last.
func buildDeviceList(schema string, q store.ListQuery) (listSQL string, listArgs []any, countSQL string, countArgs []any) {
	b := &queryBuilder{}
	devices := ident(schema) + ".devices"
	attrs := ident(schema) + ".attributes"

	var where []string
	for _, f := range q.Filters {
		where = append(where, filterCondition(b, attrs, f))
	}
	if q.HasGroup != nil {
		if *q.HasGroup {
			where = append(where, "d.group_name IS NOT NULL")
		} else {
			where = append(where, "d.group_name IS NULL")
		}
	}
	if q.GroupName != "" {
		where = append(where, "d.group_name = "+b.arg(q.GroupName))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	countSQL = "SELECT COUNT(*) FROM " + devices + " d" + whereSQL
	countArgs = append(countArgs, b.args...)

	joinSQL := ""
	orderSQL := " ORDER BY d.id"
	if q.Sort != nil {
		joinSQL = fmt.Sprintf(
			" LEFT JOIN %s s ON s.device_id = d.id AND s.scope = %s AND s.name = %s",
			attrs, b.arg(q.Sort.Scope), b.arg(q.Sort.Name))
		dir := "DESC"
		if q.Sort.Ascending {
			dir = "ASC"
		}
		// Missing-attribute devices sort last in either direction.
		orderSQL = fmt.Sprintf(
			" ORDER BY (s.value_num IS NULL AND s.value_str IS NULL), s.value_num %s, s.value_str %s, d.id",
			dir, dir)
	}

	listSQL = "SELECT d.id, d.group_name, d.revision, d.created_at, d.updated_at FROM " +
		devices + " d" + joinSQL + whereSQL + orderSQL +
		" LIMIT " + b.arg(q.Limit) + " OFFSET " + b.arg(q.Skip)

	return listSQL, b.args, countSQL, countArgs
}

// filterCondition renders one attribute predicate. Equality matches the
// string value, the numeric value when the filter parses as a number, or
// any array element; regex matches the string value or any array element.
func filterCondition(b *queryBuilder, attrs string, f store.Filter) string {
	var value string
	switch f.Op {
	case store.Regex:
		value = fmt.Sprintf(
			"(a.value_str ~ %s OR EXISTS (SELECT 1 FROM unnest(a.value_strs) elem WHERE elem ~ %s))",
			b.arg(f.Value), b.arg(f.Value))
	default:
		conds := []string{
			"a.value_str = " + b.arg(f.Value),
			b.arg(f.Value) + " = ANY(a.value_strs)",
		}
		if f.ValueNum != nil {
			conds = append(conds,
				"a.value_num = "+b.arg(*f.ValueNum),
				b.arg(*f.ValueNum)+" = ANY(a.value_nums)")
		}
		value = "(" + strings.Join(conds, " OR ") + ")"
	}

	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %s a WHERE a.device_id = d.id AND a.scope = %s AND a.name = %s AND %s)",
		attrs, b.arg(f.Scope), b.arg(f.Name), value)
}
