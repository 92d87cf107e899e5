package http

import (
	"sort"
	"time"

	"github.com/deviceline/inventory/internal/domain/device"
)

// deviceDto is the wire shape of a device: attributes grouped by scope, each
// scope's attributes sorted by name.
type deviceDto struct {
	ID         string                        `json:"id"`
	Attributes map[string][]device.Attribute `json:"attributes"`
	Group      string                        `json:"group,omitempty"`
	UpdatedTS  time.Time                     `json:"updated_ts"`
}

func newDeviceDto(d *device.Device) *deviceDto {
	dto := &deviceDto{
		ID:         d.ID,
		Group:      d.Group,
		UpdatedTS:  d.UpdatedAt,
		Attributes: map[string][]device.Attribute{},
	}

	for _, s := range device.AllScopes {
		dto.Attributes[s] = []device.Attribute{}
	}
	for _, a := range d.Attributes {
		dto.Attributes[a.Scope] = append(dto.Attributes[a.Scope], a)
	}
	for _, attrs := range dto.Attributes {
		sort.Slice(attrs, func(i, j int) bool {
			return attrs[i].Name < attrs[j].Name
		})
	}

	return dto
}

// limitScope drops every scope except the given one. The v1 API predates
// scopes and only ever exposed inventory attributes in listings.
func (dto *deviceDto) limitScope(scope string) *deviceDto {
	dto.Attributes = map[string][]device.Attribute{
		scope: dto.Attributes[scope],
	}
	return dto
}

func newDeviceDtos(devs []device.Device) []*deviceDto {
	dtos := make([]*deviceDto, len(devs))
	for i := range devs {
		dtos[i] = newDeviceDto(&devs[i])
	}
	return dtos
}
