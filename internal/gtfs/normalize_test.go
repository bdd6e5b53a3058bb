package gtfs

import (
	"testing"

	"github.com/rutagdl/ruta_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferMode(t *testing.T) {
	tests := []struct {
		name     string
		route    models.GTFSRoute
		expected models.TransitMode
	}{
		{
			name: "Bus from route type",
			route: models.GTFSRoute{
				RouteID:   "1",
				RouteType: 3,
			},
			expected: models.ModeBus,
		},
		{
			name: "BRT from Mi Macro keyword",
			route: models.GTFSRoute{
				RouteID:   "2",
				ShortName: "Mi Macro Calzada",
				RouteType: 3,
			},
			expected: models.ModeBRT,
		},
		{
			name: "Light rail from SITEUR keyword",
			route: models.GTFSRoute{
				RouteID:  "3",
				LongName: "SITEUR Línea 1",
			},
			expected: models.ModeLightRail,
		},
		{
			name: "Light rail from route type",
			route: models.GTFSRoute{
				RouteID:   "4",
				RouteType: 0,
			},
			expected: models.ModeLightRail,
		},
		{
			name: "Trolleybus from keyword",
			route: models.GTFSRoute{
				RouteID:   "5",
				ShortName: "Trolebús 400",
				RouteType: 3,
			},
			expected: models.ModeTrolley,
		},
		{
			name: "Trolleybus from route type",
			route: models.GTFSRoute{
				RouteID:   "6",
				RouteType: 11,
			},
			expected: models.ModeTrolley,
		},
		{
			name: "Default to bus",
			route: models.GTFSRoute{
				RouteID:   "7",
				RouteType: 999,
			},
			expected: models.ModeBus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := InferMode(tt.route)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRouteDisplayName(t *testing.T) {
	assert.Equal(t, "C70", RouteDisplayName(models.GTFSRoute{RouteID: "r1", ShortName: "C70", LongName: "Circunvalación"}))
	assert.Equal(t, "Circunvalación", RouteDisplayName(models.GTFSRoute{RouteID: "r1", LongName: "Circunvalación"}))
	assert.Equal(t, "r1", RouteDisplayName(models.GTFSRoute{RouteID: "r1"}))
}

func TestNormalizeColor(t *testing.T) {
	assert.Equal(t, "#FF0000", NormalizeColor("FF0000"))
	assert.Equal(t, "#FF0000", NormalizeColor("#FF0000"))
	assert.Equal(t, "", NormalizeColor(""))
}

func TestParseTimeToSeconds(t *testing.T) {
	tests := []struct {
		name     string
		timeStr  string
		expected int
		hasError bool
	}{
		{
			name:     "Valid time",
			timeStr:  "12:30:00",
			expected: 12*3600 + 30*60,
		},
		{
			name:     "Midnight",
			timeStr:  "00:00:00",
			expected: 0,
		},
		{
			name:     "After midnight service",
			timeStr:  "25:30:00",
			expected: 25*3600 + 30*60,
		},
		{
			name:     "Empty string",
			timeStr:  "",
			hasError: true,
		},
		{
			name:     "Missing seconds",
			timeStr:  "12:30",
			hasError: true,
		},
		{
			name:     "Non-numeric fields",
			timeStr:  "aa:bb:cc",
			hasError: true,
		},
		{
			name:     "Trailing garbage in a field",
			timeStr:  "12:3x:00",
			hasError: true,
		},
		{
			name:     "Minutes out of range",
			timeStr:  "12:75:00",
			hasError: true,
		},
		{
			name:     "Negative seconds",
			timeStr:  "12:30:-5",
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseTimeToSeconds(tt.timeStr)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestComputeHeadwaysFromFrequencies(t *testing.T) {
	feed := &Feed{
		Trips: []models.GTFSTrip{
			{TripID: "t1", RouteID: "R1"},
			{TripID: "t2", RouteID: "R1"},
			{TripID: "t3", RouteID: "R1"},
		},
		Frequencies: []models.GTFSFrequency{
			{TripID: "t1", HeadwaySecs: 300},
			{TripID: "t2", HeadwaySecs: 600},
			{TripID: "t3", HeadwaySecs: 900},
		},
	}

	headways := ComputeHeadways(feed)
	assert.Equal(t, 600.0, headways["R1"])
}

func TestComputeHeadwaysFallbackToDepartures(t *testing.T) {
	// No frequencies: successive first-stop departures are 10 minutes apart
	feed := &Feed{
		Trips: []models.GTFSTrip{
			{TripID: "t1", RouteID: "R1"},
			{TripID: "t2", RouteID: "R1"},
			{TripID: "t3", RouteID: "R1"},
		},
		StopTimes: []models.GTFSStopTime{
			{TripID: "t1", StopID: "A", StopSequence: 1, DepartureTime: "08:00:00"},
			{TripID: "t1", StopID: "B", StopSequence: 2, DepartureTime: "08:05:00"},
			{TripID: "t2", StopID: "A", StopSequence: 1, DepartureTime: "08:10:00"},
			{TripID: "t3", StopID: "A", StopSequence: 1, DepartureTime: "08:20:00"},
		},
	}

	headways := ComputeHeadways(feed)
	assert.Equal(t, 600.0, headways["R1"])
}

func TestComputeHeadwaysUncomputable(t *testing.T) {
	// A single trip yields no deltas and no frequency entries
	feed := &Feed{
		Trips: []models.GTFSTrip{
			{TripID: "t1", RouteID: "R1"},
		},
		StopTimes: []models.GTFSStopTime{
			{TripID: "t1", StopID: "A", StopSequence: 1, DepartureTime: "08:00:00"},
		},
	}

	headways := ComputeHeadways(feed)
	assert.Equal(t, 0.0, headways["R1"])
}

func TestValidateAndCleanStops(t *testing.T) {
	stops := []models.GTFSStop{
		{StopID: "ok", Lat: 20.67, Lon: -103.35},
		{StopID: "bad-lat", Lat: 95, Lon: -103.35},
		{StopID: "bad-lon", Lat: 20.67, Lon: -190},
		{StopID: "null-island", Lat: 0, Lon: 0},
	}

	cleaned := ValidateAndCleanStops(stops)
	require.Len(t, cleaned, 1)
	assert.Equal(t, "ok", cleaned[0].StopID)
}

func TestDeduplicateStops(t *testing.T) {
	stops := []models.GTFSStop{
		{StopID: "a", StopName: "Plaza", Lat: 20.670000, Lon: -103.350000},
		{StopID: "b", StopName: "Plaza dup", Lat: 20.670010, Lon: -103.350010}, // ~1.5m away
		{StopID: "c", StopName: "Far", Lat: 20.680000, Lon: -103.350000},       // >1km away
	}

	deduplicated, mapping := DeduplicateStops(stops, 30)
	require.Len(t, deduplicated, 2)
	assert.Equal(t, "a", mapping["a"])
	assert.Equal(t, "a", mapping["b"])
	assert.Equal(t, "c", mapping["c"])
}
