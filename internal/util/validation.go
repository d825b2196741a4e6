package util

import (
	"github.com/google/uuid"
)

// IsValidUUID accepts only the canonical lower-case hyphenated form, which is
// what the store hands out.
func IsValidUUID(s string) bool {
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.String() == s
}

func IsValidEnum[T ~string](value T, validValues []T) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}
