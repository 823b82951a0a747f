package nodeconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is one of the two disjoint instance namespaces.
type Category string

// Instance categories.
const (
	CategoryDevice Category = "device"
	CategorySensor Category = "sensor"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryDevice || c == CategorySensor
}

// AllCategories returns both categories in display order.
func AllCategories() []Category {
	return []Category{CategoryDevice, CategorySensor}
}

// CategoryOf returns the category of an instance ID by stripping trailing digits.
//
// Internal callers only pass IDs taken from a snapshot; use ParseID for
// anything that came from outside.
func CategoryOf(id string) Category {
	return Category(strings.TrimRight(id, "0123456789"))
}

// IndexOf returns the 1-based index of an instance ID by stripping leading
// letters. It returns 0 when no index can be parsed.
func IndexOf(id string) int {
	n, err := strconv.Atoi(strings.TrimLeft(id, "abcdefghijklmnopqrstuvwxyz"))
	if err != nil {
		return 0
	}
	return n
}

// MakeID builds the instance ID for a category and 1-based index.
func MakeID(category Category, index int) string {
	return string(category) + strconv.Itoa(index)
}

// ParseID validates an externally supplied instance ID.
//
// Accepted forms are "device<N>" and "sensor<N>" with N >= 1 written
// without leading zeros.
func ParseID(id string) (Category, int, error) {
	category := CategoryOf(id)
	if !category.Valid() {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	digits := strings.TrimPrefix(id, string(category))
	if digits == "" || digits[0] == '0' {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	index, err := strconv.Atoi(digits)
	if err != nil || index < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return category, index, nil
}

// IsInstanceID reports whether s is a well-formed instance ID.
func IsInstanceID(s string) bool {
	_, _, err := ParseID(s)
	return err == nil
}
