// Package uuid wraps UUID generation behind a stable internal surface.
package uuid

import "github.com/google/uuid"

// New returns a new random (v4) UUID string.
func New() string {
	return uuid.NewString()
}
