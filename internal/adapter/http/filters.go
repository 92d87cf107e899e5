package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/deviceline/inventory/internal/domain/device"
	"github.com/deviceline/inventory/internal/port/store"
)

const (
	queryParamSort     = "sort"
	queryParamHasGroup = "has_group"
	queryParamGroup    = "group"

	sortOrderAsc  = "asc"
	sortOrderDesc = "desc"
)

// Query parameters that are never attribute filters.
var knownParams = map[string]bool{
	pageName:           true,
	perPageName:        true,
	queryParamSort:     true,
	queryParamHasGroup: true,
	queryParamGroup:    true,
}

// parseSortV1 parses `sort=<attr>[:asc|desc]`. The v1 API predates scopes;
// sorting applies to inventory attributes.
func parseSortV1(r *http.Request) (*store.Sort, error) {
	raw := r.URL.Query().Get(queryParamSort)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ":")
	s := &store.Sort{Scope: device.ScopeInventory, Name: parts[0], Ascending: true}
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid sort %q", raw)
	}
	if len(parts) == 2 {
		if parts[1] != sortOrderAsc && parts[1] != sortOrderDesc {
			return nil, fmt.Errorf("invalid sort order %q", parts[1])
		}
		s.Ascending = parts[1] == sortOrderAsc
	}
	return s, nil
}

// parseSortV2 parses `sort=<scope>:<attr>[:asc|desc]`.
func parseSortV2(r *http.Request) (*store.Sort, error) {
	raw := r.URL.Query().Get(queryParamSort)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid sort %q: expected scope:name[:asc|desc]", raw)
	}
	if err := validScope(parts[0]); err != nil {
		return nil, err
	}
	s := &store.Sort{Scope: parts[0], Name: parts[1], Ascending: true}
	if len(parts) == 3 {
		if parts[2] != sortOrderAsc && parts[2] != sortOrderDesc {
			return nil, fmt.Errorf("invalid sort order %q", parts[2])
		}
		s.Ascending = parts[2] == sortOrderAsc
	}
	return s, nil
}

// parseFiltersV1 treats every unreserved query parameter as an inventory
// attribute filter: `attr=value`, `attr=eq:value`, `attr=~re`, `attr=regex:re`.
func parseFiltersV1(r *http.Request) ([]store.Filter, error) {
	filters := make([]store.Filter, 0)
	for name, values := range r.URL.Query() {
		if knownParams[name] || len(values) == 0 {
			continue
		}
		f, err := parseFilterValue(values[0])
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", name, err)
		}
		f.Scope = device.ScopeInventory
		f.Name = name
		filters = append(filters, f)
	}
	return filters, nil
}

// parseFiltersV2 treats every unreserved query parameter as a scoped filter:
// `scope:attr=value` with the same value grammar as v1.
func parseFiltersV2(r *http.Request) ([]store.Filter, error) {
	filters := make([]store.Filter, 0)
	for name, values := range r.URL.Query() {
		if knownParams[name] || len(values) == 0 {
			continue
		}
		scopeName := strings.SplitN(name, ":", 2)
		if len(scopeName) != 2 {
			return nil, fmt.Errorf("invalid filter %q: expected scope:name", name)
		}
		if err := validScope(scopeName[0]); err != nil {
			return nil, err
		}
		f, err := parseFilterValue(values[0])
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", name, err)
		}
		f.Scope = scopeName[0]
		f.Name = scopeName[1]
		filters = append(filters, f)
	}
	return filters, nil
}

// parseFilterValue interprets the filter value grammar:
//
//	<v>         equality
//	eq:<v>      equality
//	~<re>       POSIX regex
//	regex:<re>  POSIX regex
//
// Equality values that parse as float also match numeric attributes.
func parseFilterValue(raw string) (store.Filter, error) {
	var f store.Filter
	switch {
	case strings.HasPrefix(raw, "~"):
		f.Op = store.Regex
		f.Value = raw[1:]
	case strings.HasPrefix(raw, "regex:"):
		f.Op = store.Regex
		f.Value = raw[len("regex:"):]
	case strings.HasPrefix(raw, "eq:"):
		f.Op = store.Eq
		f.Value = raw[len("eq:"):]
	default:
		// A colon inside the value (mac addresses, timestamps) is only an
		// operator when the prefix names one; anything else is a literal.
		f.Op = store.Eq
		f.Value = raw
	}
	if f.Op == store.Eq {
		if num, err := strconv.ParseFloat(f.Value, 64); err == nil {
			f.ValueNum = &num
		}
	}
	if f.Value == "" {
		return f, fmt.Errorf("empty filter value")
	}
	return f, nil
}

// parseHasGroup returns nil when the parameter is absent.
func parseHasGroup(r *http.Request) (*bool, error) {
	raw := r.URL.Query().Get(queryParamHasGroup)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid has_group value %q", raw)
	}
	return &v, nil
}

func validScope(scope string) error {
	for _, s := range device.AllScopes {
		if s == scope {
			return nil
		}
	}
	return fmt.Errorf("invalid attribute scope %q", scope)
}
