// Package device holds the device inventory data model: devices, their
// schema-less scoped attributes, and group membership.
package device

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/deviceline/inventory/internal/domain"
)

// Attribute scopes. Each attribute lives in exactly one scope; (scope, name)
// is unique per device.
const (
	ScopeInventory = "inventory"
	ScopeIdentity  = "identity"
	ScopeSystem    = "system"
	ScopeTags      = "tags"
)

// AllScopes lists every recognized attribute scope.
var AllScopes = []string{ScopeInventory, ScopeIdentity, ScopeSystem, ScopeTags}

// MaxTags is the number of live tag-scope attributes a device may carry.
// Bulk submissions beyond the cap are truncated in submission order.
const MaxTags = 20

// maxIdentifierLen bounds device ids, attribute names, and scope names.
const maxIdentifierLen = 1024

var groupNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Attribute is a single typed key/value entry on a device. Value is a
// string, a float64, or a homogeneous []string / []float64.
type Attribute struct {
	Name        string  `json:"name"`
	Value       any     `json:"value"`
	Scope       string  `json:"scope,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Validate checks name/scope bounds and that the value is one of the
// supported shapes.
func (a Attribute) Validate() error {
	if a.Name == "" || len(a.Name) > maxIdentifierLen {
		return fmt.Errorf("%w: attribute name must be 1..%d characters", domain.ErrInvalidArgument, maxIdentifierLen)
	}
	if a.Scope == "" || len(a.Scope) > maxIdentifierLen {
		return fmt.Errorf("%w: attribute scope must be 1..%d characters", domain.ErrInvalidArgument, maxIdentifierLen)
	}
	return validateValue(a.Value)
}

func validateValue(v any) error {
	switch val := v.(type) {
	case string, float64:
		return nil
	case []any:
		return validateArrayValue(val)
	default:
		return fmt.Errorf("%w: supported value types are string, float64, and arrays thereof", domain.ErrInvalidArgument)
	}
}

// validateArrayValue requires every element to share the type of the first.
func validateArrayValue(arr []any) error {
	var wantString, wantFloat bool
	for i, v := range arr {
		_, isString := v.(string)
		_, isFloat := v.(float64)
		switch {
		case i == 0 && isString:
			wantString = true
		case i == 0 && isFloat:
			wantFloat = true
		case i == 0:
			return fmt.Errorf("%w: array values must be string or float64", domain.ErrInvalidArgument)
		case (wantString && !isString) || (wantFloat && !isFloat):
			return fmt.Errorf("%w: array values must be of consistent type", domain.ErrInvalidArgument)
		}
	}
	return nil
}

// Attributes maps (scope, name) to the attribute stored under that key.
type Attributes map[Key]Attribute

// Key identifies an attribute within a device.
type Key struct {
	Scope string
	Name  string
}

// Device is a single inventory record. Group is empty when the device is
// not a member of any group. Revision changes on every tag mutation and
// backs the ETag optimistic-concurrency scheme.
type Device struct {
	ID         string
	Attributes Attributes
	Group      string
	Revision   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the device id bounds and every attribute.
func (d Device) Validate() error {
	if d.ID == "" || len(d.ID) > maxIdentifierLen {
		return fmt.Errorf("%w: device id must be 1..%d characters", domain.ErrInvalidArgument, maxIdentifierLen)
	}
	for _, a := range d.Attributes {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGroupName rejects group names outside [A-Za-z0-9_-]+.
func ValidateGroupName(name string) error {
	if !groupNameRe.MatchString(name) {
		return fmt.Errorf("%w: group name can only contain alphanumerics, - and _", domain.ErrInvalidArgument)
	}
	return nil
}

// Merge overlays attrs onto the device's attribute set, replacing entries
// with the same (scope, name) and adding the rest. Untouched attributes
// are preserved.
func (d *Device) Merge(attrs []Attribute) {
	if d.Attributes == nil {
		d.Attributes = Attributes{}
	}
	for _, a := range attrs {
		d.Attributes[Key{Scope: a.Scope, Name: a.Name}] = a
	}
}

// Tags returns the device's tag-scope attributes.
func (d Device) Tags() []Attribute {
	var tags []Attribute
	for k, a := range d.Attributes {
		if k.Scope == ScopeTags {
			tags = append(tags, a)
		}
	}
	return tags
}

// CapTags truncates a tag submission to at most MaxTags entries, keeping
// submission order, and forces the tags scope on every entry.
func CapTags(tags []Attribute) []Attribute {
	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	out := make([]Attribute, len(tags))
	for i, t := range tags {
		t.Scope = ScopeTags
		out[i] = t
	}
	return out
}

// UnmarshalJSON accepts the wire form of an attribute list and keys it by
// (scope, name). Attributes without a scope default to the inventory scope,
// which is what older clients send.
func (as *Attributes) UnmarshalJSON(b []byte) error {
	var arr []Attribute
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) == 0 {
		return nil
	}
	*as = Attributes{}
	for _, a := range arr {
		if a.Scope == "" {
			a.Scope = ScopeInventory
		}
		(*as)[Key{Scope: a.Scope, Name: a.Name}] = a
	}
	return nil
}

// MarshalJSON renders the attribute map back into wire form.
func (as Attributes) MarshalJSON() ([]byte, error) {
	arr := make([]Attribute, 0, len(as))
	for k, a := range as {
		if a.Name == "" {
			a.Name = k.Name
		}
		if a.Scope == "" {
			a.Scope = k.Scope
		}
		arr = append(arr, a)
	}
	return json.Marshal(arr)
}
