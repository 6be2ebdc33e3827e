package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBookingReference(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)
	ref := NewBookingReference(now)

	assert.Len(t, ref, 24)
	assert.Regexp(t, `^BK20260830150405[0-9A-F]{8}$`, ref)
}

func TestNewBookingReference_Unique(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		ref := NewBookingReference(now)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}
