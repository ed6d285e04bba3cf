package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeSlot_Overlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	slot := TimeSlot{StartAt: base, EndAt: base.Add(time.Hour)}

	t.Run("disjoint after", func(t *testing.T) {
		other := TimeSlot{StartAt: base.Add(time.Hour), EndAt: base.Add(2 * time.Hour)}
		assert.False(t, slot.Overlaps(other), "half-open intervals touching at the boundary do not overlap")
	})

	t.Run("contained", func(t *testing.T) {
		other := TimeSlot{StartAt: base.Add(15 * time.Minute), EndAt: base.Add(30 * time.Minute)}
		assert.True(t, slot.Overlaps(other))
	})

	t.Run("partial", func(t *testing.T) {
		other := TimeSlot{StartAt: base.Add(30 * time.Minute), EndAt: base.Add(90 * time.Minute)}
		assert.True(t, slot.Overlaps(other))
	})
}

func TestTimeSlot_Valid(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	assert.True(t, TimeSlot{StartAt: base, EndAt: base.Add(time.Hour)}.Valid())
	assert.False(t, TimeSlot{StartAt: base, EndAt: base}.Valid())
	assert.False(t, TimeSlot{EndAt: base}.Valid())
	assert.True(t, TimeSlot{}.IsZero())
}

func TestDateKey_RoundTrip(t *testing.T) {
	day := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)
	key := DateKey(day)
	assert.Equal(t, "2026-02-07", key)

	parsed, err := ParseDateKey(key)
	assert.NoError(t, err)
	assert.True(t, parsed.Equal(day))
}

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	assert.NoError(t, err)

	ts := time.Date(2026, 6, 15, 18, 42, 13, 500, loc)
	sod := StartOfDay(ts)

	assert.Equal(t, 0, sod.Hour())
	assert.Equal(t, 0, sod.Minute())
	assert.Equal(t, loc, sod.Location())
	assert.Equal(t, ts.Day(), sod.Day())
}

func TestInitiatorRole_Valid(t *testing.T) {
	assert.True(t, RoleMentor.Valid())
	assert.True(t, RoleStudent.Valid())
	assert.False(t, InitiatorRole("admin").Valid())
	assert.False(t, InitiatorRole("").Valid())
}
