package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/deviceline/inventory/internal/config"
	"github.com/deviceline/inventory/internal/domain"
	"github.com/deviceline/inventory/internal/domain/device"
	"github.com/deviceline/inventory/internal/middleware"
	"github.com/deviceline/inventory/internal/port/store"
	"github.com/deviceline/inventory/internal/service"
)

// Handlers bundles the services the HTTP API dispatches to.
type Handlers struct {
	inventory *service.InventoryService
	tenants   *service.TenantService
	verifier  *service.AuthVerifyService
	limits    config.Limits
	logger    *slog.Logger
}

// NewHandlers creates the handler set. verifier may be nil when no external
// auth validator is configured; the auth/verify endpoint then returns 502.
func NewHandlers(inv *service.InventoryService, tenants *service.TenantService, verifier *service.AuthVerifyService, limits config.Limits, logger *slog.Logger) *Handlers {
	return &Handlers{
		inventory: inv,
		tenants:   tenants,
		verifier:  verifier,
		limits:    limits,
		logger:    logger,
	}
}

// ListDevicesV1 handles GET /api/0.1.0/devices: attribute filters over the
// inventory scope, optional sort/has_group/group, paginated.
func (h *Handlers) ListDevicesV1(w http.ResponseWriter, r *http.Request) {
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
	sort, err := parseSortV1(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters, err := parseFiltersV1(r)
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

	dtos := newDeviceDtos(devs)
	for _, d := range dtos {
		d.limitScope(device.ScopeInventory)
	}
	writePage(w, r, page, perPage, total, dtos)
}

// GetDevice handles GET /api/0.1.0/devices/{id}. The response carries the
// device's current revision in ETag.
func (h *Handlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := h.inventory.GetDevice(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "device not found")
		return
	}
	w.Header().Set("ETag", dev.Revision)
	writeJSON(w, http.StatusOK, newDeviceDto(dev))
}

// DeleteDevice handles DELETE /api/0.1.0/devices/{id}. Deleting an unknown
// device still yields 204.
func (h *Handlers) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	err := h.inventory.DeleteDevice(r.Context(), urlParam(r, "id"))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		writeDomainError(w, err, "failed to delete device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PatchDeviceAttributes handles PATCH /api/0.1.0/attributes: the device
// updates its own inventory attributes; its id comes from the token subject.
func (h *Handlers) PatchDeviceAttributes(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromContext(r.Context())
	if ident == nil || ident.Subject == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	attrs, ok := readJSON[[]device.Attribute](w, r)
	if !ok {
		return
	}
	for i := range attrs {
		attrs[i].Scope = device.ScopeInventory
	}
	if err := h.inventory.UpsertAttributes(r.Context(), ident.Subject, attrs); err != nil {
		writeDomainError(w, err, "failed to update attributes")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// AddDeviceToGroup handles PUT /api/0.1.0/devices/{id}/group, replacing any
// previous membership.
func (h *Handlers) AddDeviceToGroup(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[struct {
		Group string `json:"group"`
	}](w, r)
	if !ok {
		return
	}
	if err := h.inventory.UpdateDeviceGroup(r.Context(), urlParam(r, "id"), body.Group); err != nil {
		writeDomainError(w, err, "device not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDeviceGroup handles GET /api/0.1.0/devices/{id}/group, returning
// {"group": null} for ungrouped devices.
func (h *Handlers) GetDeviceGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.inventory.GetDeviceGroup(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "device not found")
		return
	}
	resp := map[string]*string{"group": nil}
	if group != "" {
		resp["group"] = &group
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteDeviceGroup handles DELETE /api/0.1.0/devices/{id}/group/{name}. The
// device must currently belong to exactly that group.
func (h *Handlers) DeleteDeviceGroup(w http.ResponseWriter, r *http.Request) {
	err := h.inventory.UnsetDeviceGroup(r.Context(), urlParam(r, "id"), urlParam(r, "name"))
	if err != nil {
		writeDomainError(w, err, "device is not a member of the group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGroups handles GET /api/0.1.0/groups.
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.inventory.ListGroups(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to list groups")
		return
	}
	if groups == nil {
		groups = []string{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// GetDevicesByGroup handles GET /api/0.1.0/groups/{name}/devices, returning a
// page of member device ids. An unknown group yields an empty page.
func (h *Handlers) GetDevicesByGroup(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := parsePagination(r, h.limits)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ids, total, err := h.inventory.GetDevicesByGroup(r.Context(), urlParam(r, "name"), (page-1)*perPage, perPage)
	if err != nil {
		writeDomainError(w, err, "failed to list group devices")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writePage(w, r, page, perPage, total, ids)
}

// writePage emits Link/X-Total-Count pagination headers and the page body.
func writePage(w http.ResponseWriter, r *http.Request, page, perPage, total int, body any) {
	hasNext := total > page*perPage
	for _, l := range pageLinkHeaders(r, page, perPage, hasNext) {
		w.Header().Add("Link", l)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, body)
}
