package pruning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KganDev/irish-rail-schedule/internal/models"
)

func weekdayCal(serviceID, start, end string) models.Calendar {
	return models.Calendar{
		ServiceID: serviceID,
		Monday:    true,
		Tuesday:   true,
		Wednesday: true,
		Thursday:  true,
		Friday:    true,
		StartDate: start,
		EndDate:   end,
	}
}

func TestGroupPartition(t *testing.T) {
	cals := []models.Calendar{
		weekdayCal("100", "20240101", "20240331"),
		weekdayCal("101", "20240401", "20240630"),
		{ServiceID: "200", Saturday: true, Sunday: true, StartDate: "20240101", EndDate: "20240630"},
	}
	trips := []models.Trip{
		{ID: "t1", ServiceID: "100", RouteID: "DART"},
		{ID: "t2", ServiceID: "101", RouteID: "DART"},
		{ID: "t3", ServiceID: "200", RouteID: "DART"},
	}

	groups := Group(cals, trips)

	// Two groups: weekday DART services together, weekend DART alone.
	require.Len(t, groups, 2)

	total := 0
	for _, serviceIDs := range groups {
		total += len(serviceIDs)
	}
	assert.Equal(t, 3, total, "every service with a calendar is in exactly one group")
}

func TestGroupSplitsByRouteSet(t *testing.T) {
	cals := []models.Calendar{
		weekdayCal("100", "20240101", "20240331"),
		weekdayCal("101", "20240101", "20240331"),
	}
	trips := []models.Trip{
		{ID: "t1", ServiceID: "100", RouteID: "DART"},
		{ID: "t2", ServiceID: "101", RouteID: "InterCity"},
	}

	groups := Group(cals, trips)
	assert.Len(t, groups, 2, "same mask but different routes must not be grouped")
}

func TestGroupMultiRouteKeyIsOrderIndependent(t *testing.T) {
	cals := []models.Calendar{
		weekdayCal("100", "20240101", "20240331"),
		weekdayCal("101", "20240101", "20240331"),
	}
	trips := []models.Trip{
		{ID: "t1", ServiceID: "100", RouteID: "A"},
		{ID: "t2", ServiceID: "100", RouteID: "B"},
		{ID: "t3", ServiceID: "101", RouteID: "B"},
		{ID: "t4", ServiceID: "101", RouteID: "A"},
	}

	groups := Group(cals, trips)
	require.Len(t, groups, 1)
	for key, serviceIDs := range groups {
		assert.Equal(t, []string{"A", "B"}, key.RouteIDs())
		assert.Equal(t, []string{"100", "101"}, serviceIDs)
	}
}

func TestGroupServiceWithoutTripsUsesSentinel(t *testing.T) {
	cals := []models.Calendar{weekdayCal("100", "20240101", "20240331")}

	groups := Group(cals, nil)
	require.Len(t, groups, 1)
	for key := range groups {
		assert.Equal(t, []string{models.UnknownRoute}, key.RouteIDs())
	}
}

func TestGroupTripWithoutRouteUsesSentinel(t *testing.T) {
	cals := []models.Calendar{weekdayCal("100", "20240101", "20240331")}
	trips := []models.Trip{{ID: "t1", ServiceID: "100"}}

	groups := Group(cals, trips)
	for key := range groups {
		assert.Equal(t, []string{models.UnknownRoute}, key.RouteIDs())
	}
}

func TestSortedKeysDeterministic(t *testing.T) {
	cals := []models.Calendar{
		weekdayCal("100", "20240101", "20240331"),
		{ServiceID: "200", Saturday: true, Sunday: true, StartDate: "20240101", EndDate: "20240331"},
		{ServiceID: "300", Monday: true, StartDate: "20240101", EndDate: "20240331"},
	}
	trips := []models.Trip{
		{ID: "t1", ServiceID: "100", RouteID: "DART"},
		{ID: "t2", ServiceID: "200", RouteID: "DART"},
		{ID: "t3", ServiceID: "300", RouteID: "DART"},
	}

	groups := Group(cals, trips)
	first := SortedKeys(groups)
	second := SortedKeys(groups)
	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Mask.String() < first[i].Mask.String() ||
			(first[i-1].Mask == first[i].Mask && first[i-1].Routes < first[i].Routes))
	}
}
