package postgres

import (
	"strings"
	"testing"

	"github.com/deviceline/inventory/internal/port/store"
)

func TestBuildDeviceListDefaults(t *testing.T) {
	listSQL, listArgs, countSQL, countArgs := buildDeviceList("inventory", store.ListQuery{Skip: 0, Limit: 10})

	if !strings.Contains(listSQL, `FROM "inventory".devices d`) {
		t.Errorf("expected schema-qualified devices table, got %q", listSQL)
	}
	if !strings.Contains(listSQL, "ORDER BY d.id") {
		t.Errorf("expected default id ordering, got %q", listSQL)
	}
	if !strings.Contains(listSQL, "LIMIT $1 OFFSET $2") {
		t.Errorf("expected paging placeholders, got %q", listSQL)
	}
	if len(listArgs) != 2 || listArgs[0] != 10 || listArgs[1] != 0 {
		t.Errorf("expected [limit skip] args, got %v", listArgs)
	}
	if strings.Contains(countSQL, "WHERE") {
		t.Errorf("expected unfiltered count, got %q", countSQL)
	}
	if len(countArgs) != 0 {
		t.Errorf("expected no count args, got %v", countArgs)
	}
}

func TestBuildDeviceListEqualityFilter(t *testing.T) {
	num := 8.0
	q := store.ListQuery{
		Limit: 10,
		Filters: []store.Filter{
			{Scope: "inventory", Name: "cpus", Op: store.Eq, Value: "8", ValueNum: &num},
		},
	}
	listSQL, listArgs, countSQL, countArgs := buildDeviceList("inventory", q)

	if !strings.Contains(listSQL, `EXISTS (SELECT 1 FROM "inventory".attributes a`) {
		t.Errorf("expected attribute EXISTS subquery, got %q", listSQL)
	}
	if !strings.Contains(listSQL, "a.value_str = $1") {
		t.Errorf("expected string equality branch, got %q", listSQL)
	}
	if !strings.Contains(listSQL, "a.value_num = $3") {
		t.Errorf("expected numeric equality branch, got %q", listSQL)
	}
	if !strings.Contains(listSQL, "= ANY(a.value_strs)") || !strings.Contains(listSQL, "= ANY(a.value_nums)") {
		t.Errorf("expected array element matching, got %q", listSQL)
	}
	if !strings.Contains(listSQL, "a.scope = $5 AND a.name = $6") {
		t.Errorf("expected scope and name predicates, got %q", listSQL)
	}
	// value_str, ANY-str, value_num, ANY-num, scope, name, limit, skip
	if len(listArgs) != 8 {
		t.Fatalf("expected 8 list args, got %v", listArgs)
	}
	if listArgs[4] != "inventory" || listArgs[5] != "cpus" {
		t.Errorf("expected scope+name args, got %v", listArgs)
	}
	if !strings.Contains(countSQL, "WHERE EXISTS") {
		t.Errorf("expected filtered count, got %q", countSQL)
	}
	if len(countArgs) != 6 {
		t.Errorf("expected 6 count args, got %v", countArgs)
	}
}

func TestBuildDeviceListRegexFilter(t *testing.T) {
	q := store.ListQuery{
		Limit: 10,
		Filters: []store.Filter{
			{Scope: "identity", Name: "mac", Op: store.Regex, Value: "^00:1b"},
		},
	}
	listSQL, listArgs, _, _ := buildDeviceList("inventory", q)

	if !strings.Contains(listSQL, "a.value_str ~ $1") {
		t.Errorf("expected POSIX regex match, got %q", listSQL)
	}
	if !strings.Contains(listSQL, "FROM unnest(a.value_strs) elem WHERE elem ~ $2") {
		t.Errorf("expected regex over array elements, got %q", listSQL)
	}
	if listArgs[0] != "^00:1b" || listArgs[1] != "^00:1b" {
		t.Errorf("expected regex args, got %v", listArgs)
	}
}

func TestBuildDeviceListGroupPredicates(t *testing.T) {
	hasGroup := false
	listSQL, _, _, _ := buildDeviceList("inventory", store.ListQuery{Limit: 10, HasGroup: &hasGroup})
	if !strings.Contains(listSQL, "d.group_name IS NULL") {
		t.Errorf("expected ungrouped predicate, got %q", listSQL)
	}

	hasGroup = true
	listSQL, _, _, _ = buildDeviceList("inventory", store.ListQuery{Limit: 10, HasGroup: &hasGroup})
	if !strings.Contains(listSQL, "d.group_name IS NOT NULL") {
		t.Errorf("expected grouped predicate, got %q", listSQL)
	}

	listSQL, args, _, _ := buildDeviceList("inventory", store.ListQuery{Limit: 10, GroupName: "staging"})
	if !strings.Contains(listSQL, "d.group_name = $1") {
		t.Errorf("expected group equality, got %q", listSQL)
	}
	if args[0] != "staging" {
		t.Errorf("expected group name arg first, got %v", args)
	}
}

func TestBuildDeviceListSortJoinsAttribute(t *testing.T) {
	q := store.ListQuery{
		Limit: 10,
		Sort:  &store.Sort{Scope: "inventory", Name: "serial", Ascending: true},
	}
	listSQL, listArgs, countSQL, _ := buildDeviceList("inventory", q)

	if !strings.Contains(listSQL, `LEFT JOIN "inventory".attributes s ON s.device_id = d.id AND s.scope = $1 AND s.name = $2`) {
		t.Errorf("expected sort attribute join, got %q", listSQL)
	}
	if !strings.Contains(listSQL, "(s.value_num IS NULL AND s.value_str IS NULL), s.value_num ASC, s.value_str ASC, d.id") {
		t.Errorf("expected nulls-last ordering, got %q", listSQL)
	}
	if listArgs[0] != "inventory" || listArgs[1] != "serial" {
		t.Errorf("expected sort args first, got %v", listArgs)
	}
	if strings.Contains(countSQL, "LEFT JOIN") {
		t.Errorf("count query must not join the sort attribute, got %q", countSQL)
	}

	q.Sort.Ascending = false
	listSQL, _, _, _ = buildDeviceList("inventory", q)
	if !strings.Contains(listSQL, "s.value_num DESC, s.value_str DESC") {
		t.Errorf("expected descending order, got %q", listSQL)
	}
}

func TestSchemaFor(t *testing.T) {
	if got := schemaFor(""); got != "inventory" {
		t.Errorf("expected default schema, got %q", got)
	}
	if got := schemaFor("acme"); got != "inventory_acme" {
		t.Errorf("expected tenant schema, got %q", got)
	}
}
