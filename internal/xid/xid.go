package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a random UUID, prefixed with "<prefix>-" when prefix is set.
func New(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return fmt.Sprintf("%s-%s", prefix, id)
}

// RentalNumber returns a short human-facing rental number such as R-40213.
func RentalNumber() string {
	u := uuid.New()
	n := (uint32(u[0])<<16 | uint32(u[1])<<8 | uint32(u[2])) % 90000
	return fmt.Sprintf("R-%05d", n+10000)
}
