package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalendarMask(t *testing.T) {
	weekday := Calendar{
		ServiceID: "100",
		Monday:    true,
		Tuesday:   true,
		Wednesday: true,
		Thursday:  true,
		Friday:    true,
	}

	mask := weekday.Mask()
	assert.Equal(t, WeekdayMask{true, true, true, true, true, false, false}, mask)
	assert.Equal(t, 5, mask.ActiveDayCount())
	assert.Equal(t, "1111100", mask.String())
}

func TestWeekdayMaskEmpty(t *testing.T) {
	var mask WeekdayMask
	assert.Equal(t, 0, mask.ActiveDayCount())
	assert.Equal(t, "0000000", mask.String())
}

func TestWeekdayMaskWeekendOnly(t *testing.T) {
	mask := Calendar{Saturday: true, Sunday: true}.Mask()
	assert.Equal(t, 2, mask.ActiveDayCount())
	assert.Equal(t, "0000011", mask.String())
}
