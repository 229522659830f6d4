package globalcache

import (
	"context"
	"errors"
	"testing"
)

var testDeviceByLabel = NewLabelType(testDeviceType, KeyFromAttributes("label"))

func saveBoth(t *testing.T, cache *Cache, src Source) (*Entity, *LabelEntity) {
	t.Helper()
	ctx := context.Background()

	primary, err := cache.Entity(testDeviceType, src)
	if err != nil {
		t.Fatalf("Entity() error = %v", err)
	}
	if err := primary.Save(ctx); err != nil {
		t.Fatalf("primary Save() error = %v", err)
	}
	label, err := cache.ByLabel(testDeviceByLabel, FromSource{Source: src})
	if err != nil {
		t.Fatalf("ByLabel() error = %v", err)
	}
	if err := label.Save(ctx); err != nil {
		t.Fatalf("label Save() error = %v", err)
	}
	return primary, label
}

func TestLabelEntity_MirrorsPrimary(t *testing.T) {
	backend, mr := setupRedis(t)
	primary, label := saveBoth(t, NewCache(backend), Fields{"id": "f1", "label": "pump", "name": "Main pump"})

	if label.Key() != "INDUSTRIAL:device:label:pump" {
		t.Errorf("label Key() = %q", label.Key())
	}
	for _, attr := range []string{"id", "label", "name"} {
		if got, want := mr.HGet(label.Key(), attr), mr.HGet(primary.Key(), attr); got != want {
			t.Errorf("label %s = %q, primary = %q", attr, got, want)
		}
	}
	if _, ok := label.Origin().(FromSource); !ok {
		t.Errorf("Origin() = %T, want FromSource", label.Origin())
	}
}

func TestLabelEntity_DereferenceEqualsPrimary(t *testing.T) {
	backend, _ := setupRedis(t)
	ctx := context.Background()
	cache := NewCache(backend)
	primary, _ := saveBoth(t, cache, Fields{"id": "f1", "label": "pump", "name": "Main pump"})

	byKey, err := cache.ByLabel(testDeviceByLabel, FromKey{Key: "pump"})
	if err != nil {
		t.Fatalf("ByLabel(FromKey) error = %v", err)
	}
	nested, err := byKey.GetAllAttributesNested(ctx, "id")
	if err != nil {
		t.Fatalf("GetAllAttributesNested() error = %v", err)
	}
	direct, _ := primary.GetAllAttributes(ctx)

	for attr, want := range direct {
		got := nested[attr]
		if got.Value != want.Value || got.Found != want.Found {
			t.Errorf("%s: nested %+v, direct %+v", attr, got, want)
		}
		if got.Found && got.Key != primary.Key() {
			t.Errorf("%s read from %q, want primary %q", attr, got.Key, primary.Key())
		}
	}
	if v, _ := byKey.Get("name"); v != "Main pump" {
		t.Errorf("in-memory name = %q after dereference", v)
	}
}

func TestLabelEntity_DereferenceFollowsPrimaryUpdates(t *testing.T) {
	backend, _ := setupRedis(t)
	ctx := context.Background()
	cache := NewCache(backend)
	saveBoth(t, cache, Fields{"id": "f1", "label": "pump", "name": "old"})

	updated, _ := cache.Entity(testDeviceType, Fields{"id": "f1", "label": "pump", "name": "new"})
	updated.Save(ctx)

	byKey, _ := cache.ByLabel(testDeviceByLabel, FromKey{Key: "pump"})
	attrs, err := byKey.Dereference(ctx)
	if err != nil {
		t.Fatalf("Dereference() error = %v", err)
	}
	if attrs["name"].Value != "new" {
		t.Errorf("name = %q, want the primary record's current value", attrs["name"].Value)
	}
}

func TestLabelEntity_DereferenceMissing(t *testing.T) {
	backend, _ := setupRedis(t)
	ctx := context.Background()
	metrics := NewInMemoryMetrics()
	cache := NewCacheWithObservability(backend, nil, metrics)

	byKey, _ := cache.ByLabel(testDeviceByLabel, FromKey{Key: "nobody"})
	attrs, err := byKey.GetAllAttributesNested(ctx, "id")
	if err != nil {
		t.Fatalf("GetAllAttributesNested() error = %v", err)
	}
	if len(attrs) != len(testDeviceType.Attributes()) {
		t.Fatalf("got %d attributes, want every declared attribute", len(attrs))
	}
	for attr, av := range attrs {
		if av.Found {
			t.Errorf("%s should be absent", attr)
		}
	}
	if metrics.Count(MetricDereferenceMiss) != 1 {
		t.Errorf("dereference misses = %d, want 1", metrics.Count(MetricDereferenceMiss))
	}
}

func TestLabelEntity_DereferenceDanglingReference(t *testing.T) {
	backend, _ := setupRedis(t)
	ctx := context.Background()
	cache := NewCache(backend)
	primary, _ := saveBoth(t, cache, Fields{"id": "f1", "label": "pump", "name": "Main pump"})
	primary.Delete(ctx)

	byKey, _ := cache.ByLabel(testDeviceByLabel, FromKey{Key: "pump"})
	attrs, err := byKey.Dereference(ctx)
	if err != nil {
		t.Fatalf("Dereference() error = %v", err)
	}
	if attrs["name"].Found {
		t.Error("deleted primary should read as absent")
	}
}

func TestLabelEntity_UnknownReference(t *testing.T) {
	backend, _ := setupRedis(t)
	byKey, _ := NewCache(backend).ByLabel(testDeviceByLabel, FromKey{Key: "pump"})

	_, err := byKey.GetAllAttributesNested(context.Background(), "owner")
	if !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("error = %v, want ErrUnknownAttribute", err)
	}
}

func TestLabelEntity_FromKeyCannotSave(t *testing.T) {
	backend, _ := setupRedis(t)
	byKey, _ := NewCache(backend).ByLabel(testDeviceByLabel, FromKey{Key: "pump"})

	if err := byKey.Save(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Errorf("Save() error = %v, want ErrNoSource", err)
	}
}

func TestCache_ByLabel_Keys(t *testing.T) {
	cache := NewCache(nil)
	composite := NewLabelType(testDeviceType, KeyFromAttributes("label", "name"))
	src := Fields{"id": "f1", "label": "pump", "name": "main"}

	fromSource, err := cache.ByLabel(composite, FromSource{Source: src})
	if err != nil {
		t.Fatalf("ByLabel(FromSource) error = %v", err)
	}
	fromKey, err := cache.ByLabel(composite, FromKey{Key: "pump:main"})
	if err != nil {
		t.Fatalf("ByLabel(FromKey) error = %v", err)
	}
	if fromSource.Key() != fromKey.Key() {
		t.Errorf("FromSource key %q != FromKey key %q", fromSource.Key(), fromKey.Key())
	}
}

func TestCache_ByLabel_Invalid(t *testing.T) {
	cache := NewCache(nil)

	tests := []struct {
		name   string
		origin LabelOrigin
		want   error
	}{
		{"missing key field", FromSource{Source: Fields{"id": "f1"}}, ErrMissingKeyField},
		{"empty key field", FromSource{Source: Fields{"id": "f1", "label": ""}}, ErrMissingKeyField},
		{"nil source", FromSource{}, ErrNoSource},
		{"empty bare key", FromKey{}, ErrInvalidKey},
		{"nil origin", nil, ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := cache.ByLabel(testDeviceByLabel, tt.origin); !errors.Is(err, tt.want) {
				t.Errorf("ByLabel() error = %v, want %v", err, tt.want)
			}
		})
	}
}
