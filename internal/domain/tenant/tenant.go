// Package tenant holds the tenant registry model. Each tenant owns an
// isolated storage namespace with its own device and migration records.
package tenant

import (
	"fmt"
	"time"

	"github.com/deviceline/inventory/internal/domain"
)

// Tenant is a registered customer namespace.
type Tenant struct {
	ID        string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest is the internal-API payload for provisioning a tenant.
type CreateRequest struct {
	TenantID string `json:"tenant_id"`
}

// Validate rejects empty tenant ids.
func (r CreateRequest) Validate() error {
	if r.TenantID == "" {
		return fmt.Errorf("%w: tenant_id is required", domain.ErrInvalidArgument)
	}
	return nil
}
