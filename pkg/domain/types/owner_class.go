package types

import "fmt"

// OwnerClass is the category of credential used for a platform call
type OwnerClass string

const (
	OwnerAdmin OwnerClass = "admin"
	OwnerBot   OwnerClass = "bot"
)

// AllOwnerClasses returns all valid owner classes
func AllOwnerClasses() []OwnerClass {
	return []OwnerClass{
		OwnerAdmin,
		OwnerBot,
	}
}

// IsValid checks if the owner class is valid
func (x OwnerClass) IsValid() bool {
	switch x {
	case OwnerAdmin, OwnerBot:
		return true
	default:
		return false
	}
}

// String returns the string representation of the owner class
func (x OwnerClass) String() string {
	return string(x)
}

// ParseOwnerClass parses a string into an OwnerClass
func ParseOwnerClass(s string) (OwnerClass, error) {
	oc := OwnerClass(s)
	if !oc.IsValid() {
		return "", fmt.Errorf("invalid owner class: %s", s)
	}
	return oc, nil
}
