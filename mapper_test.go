package globalcache

import (
	"errors"
	"strings"
	"testing"
)

func upper(_ Source, raw any) (any, error) {
	s, _ := raw.(string)
	return strings.ToUpper(s), nil
}

func TestNewEntityType(t *testing.T) {
	et, err := NewEntityType("device", []string{"id", "label", "name"}, Mappers{"name": upper})
	if err != nil {
		t.Fatalf("NewEntityType() error = %v", err)
	}

	if et.Name() != "device" {
		t.Errorf("Name() = %q", et.Name())
	}
	if got := strings.Join(et.Attributes(), ","); got != "id,label,name" {
		t.Errorf("Attributes() = %q, want declared order", got)
	}
	if et.Reference() != DefaultReferenceAttribute {
		t.Errorf("Reference() = %q, want id", et.Reference())
	}
	if !et.Declares("label") || et.Declares("missing") {
		t.Error("Declares() mismatch")
	}

	attrs := et.Attributes()
	attrs[0] = "changed"
	if et.Attributes()[0] != "id" {
		t.Error("Attributes() must return a copy")
	}
}

func TestNewEntityType_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		etype   string
		attrs   []string
		mappers Mappers
		opts    []EntityTypeOption
		want    error
	}{
		{"empty name", "", []string{"id"}, nil, nil, ErrInvalidConfig},
		{"name with delimiter", "dev:ice", []string{"id"}, nil, nil, ErrInvalidConfig},
		{"duplicate attribute", "device", []string{"id", "id"}, nil, nil, ErrDuplicateAttribute},
		{"mapper for undeclared", "device", []string{"id"}, Mappers{"label": upper}, nil, ErrUnknownAttribute},
		{"reference not declared", "device", []string{"label"}, nil, nil, ErrUnknownAttribute},
		{"custom reference not declared", "device", []string{"id"}, nil, []EntityTypeOption{WithReferenceAttribute("uuid")}, ErrUnknownAttribute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEntityType(tt.etype, tt.attrs, tt.mappers, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewEntityType() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMustEntityType_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid declaration")
		}
	}()
	MustEntityType("", nil, nil)
}

func TestEntityType_MapAttribute(t *testing.T) {
	et := MustEntityType("device", []string{"id", "name", "tags", "missing"}, Mappers{
		"name": upper,
		"tags": joinTags,
	})
	src := Fields{"id": "f1", "name": "pump", "tags": []string{"a", "b"}}

	tests := []struct {
		attr      string
		want      string
		wantFound bool
	}{
		{"id", "f1", true},
		{"name", "PUMP", true},
		{"tags", "a,b", true},
		{"missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			got, found, err := et.MapAttribute(src, tt.attr)
			if err != nil {
				t.Fatalf("MapAttribute() error = %v", err)
			}
			if got != tt.want || found != tt.wantFound {
				t.Errorf("MapAttribute(%s) = %q/%v, want %q/%v", tt.attr, got, found, tt.want, tt.wantFound)
			}
		})
	}
}

func TestEntityType_MapperReadsOtherFields(t *testing.T) {
	et := MustEntityType("variable", []string{"id", "display"}, Mappers{
		"display": func(src Source, _ any) (any, error) {
			label, _ := src.Attribute("label")
			unit, _ := src.Attribute("unit")
			return label.(string) + " (" + unit.(string) + ")", nil
		},
	})

	got, _, err := et.MapAttribute(Fields{"id": "v", "label": "temp", "unit": "C"}, "display")
	if err != nil {
		t.Fatalf("MapAttribute() error = %v", err)
	}
	if got != "temp (C)" {
		t.Errorf("MapAttribute(display) = %q", got)
	}
}

func TestEntityType_MapperFailure(t *testing.T) {
	boom := errors.New("boom")
	et := MustEntityType("device", []string{"id", "name"}, Mappers{
		"name": func(Source, any) (any, error) { return nil, boom },
	})

	_, _, err := et.MapAttribute(Fields{"id": "1"}, "name")
	if !errors.Is(err, ErrMapperFailed) {
		t.Errorf("error = %v, want ErrMapperFailed", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped mapper error", err)
	}

	var withCtx *ErrorWithContext
	if !errors.As(err, &withCtx) || withCtx.Context["attribute"] != "name" {
		t.Errorf("expected attribute context, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	device := MustEntityType("device", []string{"id", "name"}, Mappers{"name": upper})
	registry, err := NewRegistry(device)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	got, err := registry.Lookup("device")
	if err != nil || got != device {
		t.Errorf("Lookup(device) = %v, %v", got, err)
	}
	if _, err := registry.Lookup("nope"); !errors.Is(err, ErrUnknownEntityType) {
		t.Errorf("Lookup(nope) error = %v, want ErrUnknownEntityType", err)
	}
	if err := registry.Register(device); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("duplicate Register() error = %v, want ErrInvalidConfig", err)
	}
	if names := registry.Names(); len(names) != 1 || names[0] != "device" {
		t.Errorf("Names() = %v", names)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	registry, _ := NewRegistry(MustEntityType("device", []string{"id", "name"}, Mappers{"name": upper}))
	src := Fields{"name": "pump"}

	tests := []struct {
		name       string
		entityType string
		attribute  string
		raw        any
		want       any
	}{
		{"mapped", "device", "name", "pump", "PUMP"},
		{"unmapped attribute", "device", "id", "f1", "f1"},
		{"unknown type", "gateway", "name", "pump", "pump"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := registry.Resolve(tt.entityType, tt.attribute)(src, tt.raw)
			if err != nil {
				t.Fatalf("transform error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%s, %s) = %v, want %v", tt.entityType, tt.attribute, got, tt.want)
			}
		})
	}
}
