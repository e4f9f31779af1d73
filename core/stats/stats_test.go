package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/chakula/core/restaurant"
)

func TestPeriodStarts(t *testing.T) {
	loc := restaurant.Location
	restaurant.Location = time.FixedZone("EAT", 3*3600)
	defer func() { restaurant.Location = loc }()

	// 22:30 UTC on May 31st is already June 1st in EAT
	now := time.Date(2024, 5, 31, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 31, 21, 0, 0, 0, time.UTC), startOfDay(now))
	assert.Equal(t, time.Date(2024, 5, 31, 21, 0, 0, 0, time.UTC), startOfMonth(now))

	now = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 14, 21, 0, 0, 0, time.UTC), startOfDay(now))
	assert.Equal(t, time.Date(2024, 4, 30, 21, 0, 0, 0, time.UTC), startOfMonth(now))
}
