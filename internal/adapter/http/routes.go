package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Management + device API, first published as 0.1.0 and frozen since.
	r.Route("/api/0.1.0", func(r chi.Router) {
		r.Get("/devices", h.ListDevicesV1)
		r.Get("/devices/{id}", h.GetDevice)
		r.Delete("/devices/{id}", h.DeleteDevice)

		r.Patch("/attributes", h.PatchDeviceAttributes)

		r.Put("/devices/{id}/group", h.AddDeviceToGroup)
		r.Get("/devices/{id}/group", h.GetDeviceGroup)
		r.Delete("/devices/{id}/group/{name}", h.DeleteDeviceGroup)
		r.Get("/groups", h.ListGroups)
		r.Get("/groups/{name}/devices", h.GetDevicesByGroup)
	})

	// Management API v2: scoped filters and tags.
	r.Route("/api/management/v2/inventory", func(r chi.Router) {
		r.Get("/devices", h.ListDevicesV2)
		r.Patch("/devices/{id}/tags", h.PatchDeviceTags)
		r.Put("/devices/{id}/tags", h.ReplaceDeviceTags)
		r.Get("/filters/attributes", h.GetFilterAttributes)
	})

	// Internal API for sibling services.
	r.Route("/api/internal", func(r chi.Router) {
		r.Post("/v1/inventory/tenants", h.CreateTenant)
		r.Post("/v1/inventory/devices", h.AddDeviceInternal)
		r.Patch("/v2/inventory/devices/{id}", h.InternalPatchDeviceAttributes)
		r.Post("/v1/inventory/auth/verify", h.VerifyAuth)
	})
}
