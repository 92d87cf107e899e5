package http

import (
	"net/http"

	"github.com/deviceline/inventory/internal/domain/device"
	"github.com/deviceline/inventory/internal/port/store"
)

// ListDevicesV2 handles GET /api/management/v2/inventory/devices with scoped
// filters (`scope:name=value`) and scoped sort.
func (h *Handlers) ListDevicesV2(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := parsePagination(r, h.limits)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hasGroup, err := parseHasGroup(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sort, err := parseSortV2(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters, err := parseFiltersV2(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := store.ListQuery{
		Skip:      (page - 1) * perPage,
		Limit:     perPage,
		Filters:   filters,
		Sort:      sort,
		HasGroup:  hasGroup,
		GroupName: r.URL.Query().Get(queryParamGroup),
	}
	devs, total, err := h.inventory.ListDevices(r.Context(), q)
	if err != nil {
		writeDomainError(w, err, "failed to list devices")
		return
	}
	writePage(w, r, page, perPage, total, newDeviceDtos(devs))
}

// PatchDeviceTags handles PATCH .../devices/{id}/tags: merges the submitted
// tags into the device's tag set under If-Match concurrency control.
func (h *Handlers) PatchDeviceTags(w http.ResponseWriter, r *http.Request) {
	h.upsertTags(w, r, false)
}

// ReplaceDeviceTags handles PUT .../devices/{id}/tags: replaces the device's
// whole tag set under If-Match concurrency control.
func (h *Handlers) ReplaceDeviceTags(w http.ResponseWriter, r *http.Request) {
	h.upsertTags(w, r, true)
}

func (h *Handlers) upsertTags(w http.ResponseWriter, r *http.Request, replace bool) {
	attrs, ok := readJSON[[]device.Attribute](w, r)
	if !ok {
		return
	}
	for i := range attrs {
		attrs[i].Scope = device.ScopeTags
	}
	rev, err := h.inventory.UpsertTags(r.Context(), urlParam(r, "id"), attrs, r.Header.Get("If-Match"), replace)
	if err != nil {
		writeDomainError(w, err, "device not found")
		return
	}
	w.Header().Set("ETag", rev)
	w.WriteHeader(http.StatusOK)
}

// GetFilterAttributes handles GET .../filters/attributes, reporting which
// attributes exist in the tenant's inventory and how many devices carry each.
func (h *Handlers) GetFilterAttributes(w http.ResponseWriter, r *http.Request) {
	usage, err := h.inventory.GetFilterAttributes(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to aggregate attributes")
		return
	}
	if usage == nil {
		usage = []store.AttributeUsage{}
	}
	writeJSON(w, http.StatusOK, usage)
}
