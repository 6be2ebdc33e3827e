package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewBookingReference builds a guest-facing reference: a BK prefix, a UTC
// timestamp, and 8 hex characters of crypto-grade randomness. Collisions are
// still possible in principle, so the bookings table carries a unique
// constraint and the engine retries once on conflict.
func NewBookingReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("BK%s%s", now.UTC().Format("20060102150405"), suffix)
}
