package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/deviceline/inventory/internal/config"
)

const (
	pageName    = "page"
	perPageName = "per_page"
)

// parsePagination extracts page/per_page, applying the configured default and
// cap for per_page. page counts from 1.
func parsePagination(r *http.Request, limits config.Limits) (page, perPage int, err error) {
	page, err = parsePositiveInt(r, pageName, 1)
	if err != nil {
		return 0, 0, err
	}
	perPage, err = parsePositiveInt(r, perPageName, limits.PerPageDefault)
	if err != nil {
		return 0, 0, err
	}
	if perPage > limits.PerPageMax {
		return 0, 0, fmt.Errorf("per_page must not exceed %d", limits.PerPageMax)
	}
	return page, perPage, nil
}

func parsePositiveInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid %s value %q", name, raw)
	}
	return v, nil
}

// pageLinkHeaders builds the Link header values for a paginated listing:
// rel="first" always, rel="prev" beyond page one, rel="next" when a further
// page exists. All other query parameters are carried through unchanged.
func pageLinkHeaders(r *http.Request, page, perPage int, hasNext bool) []string {
	links := []string{pageLink(r, 1, perPage, "first")}
	if page > 1 {
		links = append(links, pageLink(r, page-1, perPage, "prev"))
	}
	if hasNext {
		links = append(links, pageLink(r, page+1, perPage, "next"))
	}
	return links
}

func pageLink(r *http.Request, page, perPage int, rel string) string {
	q := r.URL.Query()
	q.Set(pageName, strconv.Itoa(page))
	q.Set(perPageName, strconv.Itoa(perPage))
	u := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
	return fmt.Sprintf("<%s>; rel=\"%s\"", u.RequestURI(), rel)
}
