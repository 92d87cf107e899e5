package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/deviceline/inventory/internal/domain"
)

func TestAttributeValidate(t *testing.T) {
	tests := []struct {
		name    string
		attr    Attribute
		wantErr bool
	}{
		{"string value", Attribute{Name: "os", Scope: ScopeInventory, Value: "linux"}, false},
		{"float value", Attribute{Name: "cpus", Scope: ScopeInventory, Value: float64(8)}, false},
		{"string array", Attribute{Name: "ips", Scope: ScopeInventory, Value: []any{"10.0.0.1", "10.0.0.2"}}, false},
		{"float array", Attribute{Name: "loads", Scope: ScopeSystem, Value: []any{1.5, 0.2}}, false},
		{"mixed array", Attribute{Name: "bad", Scope: ScopeInventory, Value: []any{"a", 1.0}}, true},
		{"bool value", Attribute{Name: "bad", Scope: ScopeInventory, Value: true}, true},
		{"nested array", Attribute{Name: "bad", Scope: ScopeInventory, Value: []any{[]any{"a"}}}, true},
		{"empty name", Attribute{Name: "", Scope: ScopeInventory, Value: "x"}, true},
		{"empty scope", Attribute{Name: "os", Scope: "", Value: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.attr.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestDeviceValidateIDBounds(t *testing.T) {
	d := Device{ID: ""}
	if err := d.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty id, got %v", err)
	}

	long := make([]byte, 1025)
	for i := range long {
		long[i] = 'a'
	}
	d = Device{ID: string(long)}
	if err := d.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for oversized id, got %v", err)
	}
}

func TestValidateGroupName(t *testing.T) {
	for _, ok := range []string{"prod", "lab_3", "eu-west-1", "A1"} {
		if err := ValidateGroupName(ok); err != nil {
			t.Errorf("expected %q to be valid, got %v", ok, err)
		}
	}
	for _, bad := range []string{"", "two words", "semi;colon", "slash/name", "dot.name"} {
		if err := ValidateGroupName(bad); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected %q to be rejected, got %v", bad, err)
		}
	}
}

func TestMergeReplacesByScopeAndName(t *testing.T) {
	d := Device{ID: "dev-1"}
	d.Merge([]Attribute{
		{Name: "os", Scope: ScopeInventory, Value: "linux"},
		{Name: "os", Scope: ScopeSystem, Value: "ignored-elsewhere"},
	})
	d.Merge([]Attribute{
		{Name: "os", Scope: ScopeInventory, Value: "linux-rt"},
	})

	if len(d.Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(d.Attributes))
	}
	if got := d.Attributes[Key{Scope: ScopeInventory, Name: "os"}].Value; got != "linux-rt" {
		t.Errorf("expected replacement value, got %v", got)
	}
	if got := d.Attributes[Key{Scope: ScopeSystem, Name: "os"}].Value; got != "ignored-elsewhere" {
		t.Errorf("expected system-scope attribute untouched, got %v", got)
	}
}

func TestCapTags(t *testing.T) {
	var tags []Attribute
	for i := 0; i < MaxTags+7; i++ {
		tags = append(tags, Attribute{Name: fmt.Sprintf("tag-%02d", i), Value: "v"})
	}

	capped := CapTags(tags)

	if len(capped) != MaxTags {
		t.Fatalf("expected %d tags, got %d", MaxTags, len(capped))
	}
	// submission order preserved
	if capped[0].Name != "tag-00" || capped[MaxTags-1].Name != fmt.Sprintf("tag-%02d", MaxTags-1) {
		t.Fatalf("expected first %d tags in order, got %v", MaxTags, capped)
	}
	for _, c := range capped {
		if c.Scope != ScopeTags {
			t.Fatalf("expected tags scope forced, got %q", c.Scope)
		}
	}
}

func TestAttributesUnmarshalDefaultsScope(t *testing.T) {
	var as Attributes
	err := json.Unmarshal([]byte(`[
		{"name":"mac","value":"aa:bb","scope":"identity"},
		{"name":"os","value":"linux"}
	]`), &as)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := as[Key{Scope: ScopeIdentity, Name: "mac"}]; !ok {
		t.Errorf("expected identity-scope mac, got %v", as)
	}
	if _, ok := as[Key{Scope: ScopeInventory, Name: "os"}]; !ok {
		t.Errorf("expected scopeless attribute to default to inventory, got %v", as)
	}
}

func TestAttributesMarshalRoundTrip(t *testing.T) {
	in := Attributes{
		{Scope: ScopeInventory, Name: "os"}: {Name: "os", Value: "linux", Scope: ScopeInventory},
		{Scope: ScopeTags, Name: "env"}:     {Name: "env", Value: "prod", Scope: ScopeTags},
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var out Attributes
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 attributes after round trip, got %v", out)
	}
	if out[Key{Scope: ScopeTags, Name: "env"}].Value != "prod" {
		t.Fatalf("expected tag preserved, got %v", out)
	}
}

func TestTags(t *testing.T) {
	d := Device{ID: "dev-1"}
	d.Merge([]Attribute{
		{Name: "env", Scope: ScopeTags, Value: "prod"},
		{Name: "os", Scope: ScopeInventory, Value: "linux"},
	})
	tags := d.Tags()
	if len(tags) != 1 || tags[0].Name != "env" {
		t.Fatalf("expected only the tag attribute, got %v", tags)
	}
}
