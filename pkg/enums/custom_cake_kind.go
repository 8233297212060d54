package enums

import "fmt"

// CustomCakeKind distinguishes how the design was submitted.
type CustomCakeKind string

const (
	CakeKind3D    CustomCakeKind = "3d"
	CakeKindImage CustomCakeKind = "image"
)

var validCustomCakeKinds = []CustomCakeKind{
	CakeKind3D,
	CakeKindImage,
}

// String implements fmt.Stringer.
func (c CustomCakeKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CustomCakeKind.
func (c CustomCakeKind) IsValid() bool {
	for _, candidate := range validCustomCakeKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCustomCakeKind converts raw input into a CustomCakeKind.
func ParseCustomCakeKind(value string) (CustomCakeKind, error) {
	for _, candidate := range validCustomCakeKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid custom cake kind %q", value)
}
