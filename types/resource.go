package types

import "time"

// Resource identifies one tracked resource. Values match the api_id used by
// the material endpoints.
type Resource int

// Tracked resources.
const (
	Fuel Resource = iota + 1
	Ammo
	Steel
	Bauxite
	Burner
	Bucket
	DevMaterial
	Screw
)

var resourceNames = map[Resource]string{
	Fuel:        "fuel",
	Ammo:        "ammo",
	Steel:       "steel",
	Bauxite:     "bauxite",
	Burner:      "burner",
	Bucket:      "bucket",
	DevMaterial: "dev_material",
	Screw:       "screw",
}

// Resources returns all tracked resources in api_id order.
func Resources() []Resource {
	return []Resource{Fuel, Ammo, Steel, Bauxite, Burner, Bucket, DevMaterial, Screw}
}

// String returns the resource name.
func (r Resource) String() string {
	if n, ok := resourceNames[r]; ok {
		return n
	}
	return "unknown"
}

// MarshalText renders the resource by name.
func (r Resource) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// ParseResource resolves a resource name.
func ParseResource(name string) (Resource, bool) {
	for r, n := range resourceNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// Valid reports whether r is a tracked resource.
func (r Resource) Valid() bool { return r >= Fuel && r <= Screw }

// IsPrimary reports whether r is one of the four primary resources.
// Primary and secondary resources are charted on separate scales.
func (r Resource) IsPrimary() bool { return r >= Fuel && r <= Bauxite }

// ResourceSample is one observation of a resource value.
type ResourceSample struct {
	Resource Resource  `json:"resource"`
	Time     time.Time `json:"time"`
	Value    int       `json:"value"`
}
