package gtfsdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KganDev/irish-rail-schedule/internal/appconf"
	"github.com/KganDev/irish-rail-schedule/internal/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testRows(hash string) Rows {
	return Rows{
		Agencies: []models.Agency{
			{ID: "IR", Name: "Iarnrod Eireann", URL: "https://www.irishrail.ie", Timezone: "Europe/Dublin"},
		},
		Stops: []models.Stop{
			{ID: "HSTON", Name: "Dublin Heuston", Lat: 53.3464, Lon: -6.2921},
			{ID: "CNLLY", Name: "Dublin Connolly", Lat: 53.3531, Lon: -6.2466},
		},
		Routes: []models.Route{
			{ID: "DART", AgencyID: "IR", ShortName: "DART", Type: 2},
		},
		Trips: []models.Trip{
			{ID: "t1", RouteID: "DART", ServiceID: "wk"},
			{ID: "t2", RouteID: "DART", ServiceID: "wk"},
		},
		StopTimes: []models.StopTime{
			{TripID: "t1", ArrivalTime: "08:00:00", DepartureTime: "08:00:00", StopID: "HSTON", StopSequence: 1},
			{TripID: "t1", ArrivalTime: "08:30:00", DepartureTime: "08:31:00", StopID: "CNLLY", StopSequence: 2},
		},
		Calendars: []models.Calendar{
			{ServiceID: "wk", Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true,
				StartDate: "20240101", EndDate: "20241231"},
		},
		CalendarDates: []models.CalendarDate{
			{ServiceID: "wk", Date: "20240101", ExceptionType: models.ExceptionRemove},
		},
		FeedInfos: []models.FeedInfo{
			{PublisherName: "NTA", Lang: "en", Version: "v1"},
		},
		Hash:   hash,
		Source: "testdata/feed.zip",
	}
}

func TestNewClientRejectsFileDBInTestEnv(t *testing.T) {
	_, err := NewClient(NewConfig("/tmp/should-not-exist.db", appconf.Test, false))
	assert.Error(t, err)
}

func TestStoreSnapshotFirstImport(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	imported, err := client.StoreSnapshot(ctx, testRows("abc123"))
	require.NoError(t, err)
	assert.True(t, imported)

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["agencies"])
	assert.Equal(t, 2, counts["stops"])
	assert.Equal(t, 1, counts["routes"])
	assert.Equal(t, 2, counts["trips"])
	assert.Equal(t, 2, counts["stop_times"])
	assert.Equal(t, 1, counts["calendar"])
	assert.Equal(t, 1, counts["calendar_dates"])
	assert.Equal(t, 1, counts["feed_info"])

	meta, err := client.GetImportMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", meta.FileHash)
	assert.Equal(t, "testdata/feed.zip", meta.FileSource)
	assert.NotZero(t, meta.ImportTime)
}

func TestStoreSnapshotSkipsUnchangedHash(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	imported, err := client.StoreSnapshot(ctx, testRows("abc123"))
	require.NoError(t, err)
	require.True(t, imported)

	imported, err = client.StoreSnapshot(ctx, testRows("abc123"))
	require.NoError(t, err)
	assert.False(t, imported)
}

func TestStoreSnapshotReplacesOnNewHash(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.StoreSnapshot(ctx, testRows("abc123"))
	require.NoError(t, err)

	next := testRows("def456")
	next.Trips = next.Trips[:1]
	next.StopTimes = nil

	imported, err := client.StoreSnapshot(ctx, next)
	require.NoError(t, err)
	assert.True(t, imported)

	counts, err := client.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["trips"])
	assert.Equal(t, 0, counts["stop_times"])

	meta, err := client.GetImportMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "def456", meta.FileHash)
}

func TestStoreSnapshotPersistsCalendarValues(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.StoreSnapshot(ctx, testRows("abc123"))
	require.NoError(t, err)

	var monday, saturday int
	var startDate string
	err = client.DB.QueryRowContext(ctx,
		"SELECT monday, saturday, start_date FROM calendar WHERE service_id = 'wk'").
		Scan(&monday, &saturday, &startDate)
	require.NoError(t, err)
	assert.Equal(t, 1, monday)
	assert.Equal(t, 0, saturday)
	assert.Equal(t, "20240101", startDate)
}

func TestGetImportMetadataBeforeFirstImport(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetImportMetadata(context.Background())
	assert.Error(t, err)
}
