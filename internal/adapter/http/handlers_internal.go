package http

import (
	"errors"
	"net/http"

	"github.com/deviceline/inventory/internal/adapter/deviceauth"
	"github.com/deviceline/inventory/internal/domain/device"
	"github.com/deviceline/inventory/internal/domain/tenant"
	"github.com/deviceline/inventory/internal/middleware"
)

// sourceHeader names the service submitting attributes on a device's behalf.
const sourceHeader = "X-INV-Source"

// CreateTenant handles POST /api/internal/v1/inventory/tenants. Re-creating
// an existing tenant is idempotent and still answers 201.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[struct {
		TenantID string `json:"tenant_id"`
	}](w, r)
	if !ok {
		return
	}
	err := h.tenants.Create(r.Context(), tenant.CreateRequest{TenantID: body.TenantID})
	if err != nil {
		writeDomainError(w, err, "failed to create tenant")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// AddDeviceInternal handles POST /api/internal/v1/inventory/devices:
// provisioning-time device creation with an initial attribute set.
func (h *Handlers) AddDeviceInternal(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[struct {
		ID         string             `json:"id"`
		Attributes []device.Attribute `json:"attributes"`
		TenantID   string             `json:"tenant_id"`
	}](w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if body.TenantID != "" {
		ctx = middleware.WithTenant(ctx, body.TenantID)
	}

	dev := &device.Device{ID: body.ID, Attributes: device.Attributes{}}
	for _, a := range body.Attributes {
		if a.Scope == "" {
			a.Scope = device.ScopeIdentity
		}
		dev.Attributes[device.Key{Scope: a.Scope, Name: a.Name}] = a
	}
	if err := h.inventory.AddDevice(ctx, dev); err != nil {
		writeDomainError(w, err, "failed to add device")
		return
	}
	w.Header().Set("Location", "devices/"+body.ID)
	w.WriteHeader(http.StatusCreated)
}

// InternalPatchDeviceAttributes handles
// PATCH /api/internal/v2/inventory/devices/{id}?tenant_id=...; other services
// push attributes on a device's behalf and must identify themselves via
// X-INV-Source.
func (h *Handlers) InternalPatchDeviceAttributes(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(sourceHeader) == "" {
		writeError(w, http.StatusBadRequest, "required "+sourceHeader+" header is missing")
		return
	}
	ctx := r.Context()
	if t := r.URL.Query().Get("tenant_id"); t != "" {
		ctx = middleware.WithTenant(ctx, t)
	}
	attrs, ok := readJSON[[]device.Attribute](w, r)
	if !ok {
		return
	}
	for i := range attrs {
		if attrs[i].Scope == "" {
			attrs[i].Scope = device.ScopeInventory
		}
	}
	if err := h.inventory.UpsertAttributes(ctx, urlParam(r, "id"), attrs); err != nil {
		writeDomainError(w, err, "failed to update attributes")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// VerifyAuth handles POST /api/internal/v1/inventory/auth/verify, the auth
// sub-request endpoint proxies delegate to. The validator's verdict maps to
// 200/401/403; an unreachable validator maps to 502.
func (h *Handlers) VerifyAuth(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		writeError(w, http.StatusBadGateway, "auth validator is not configured")
		return
	}
	token := r.Header.Get("Authorization")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing Authorization header")
		return
	}
	verdict, err := h.verifier.Verify(r.Context(), token,
		r.Header.Get("X-Original-URI"), r.Header.Get("X-Original-Method"))
	if err != nil {
		if errors.Is(err, deviceauth.ErrUnavailable) {
			writeError(w, http.StatusBadGateway, "auth validator unavailable")
			return
		}
		writeInternalError(w, err)
		return
	}
	switch verdict {
	case deviceauth.Allow:
		w.WriteHeader(http.StatusOK)
	case deviceauth.DenyForbidden:
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
}
