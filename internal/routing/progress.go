package routing

import (
	"fmt"
	"math"

	"github.com/rutagdl/ruta_core/internal/models"
)

// PositionAlong estimates where a traveler following the itinerary is after
// the given elapsed time, by linear interpolation between segment endpoints.
// Waiting at a stop keeps the position fixed at the segment's origin.
func PositionAlong(it *models.Itinerary, elapsedSeconds float64) (lat, lon float64, err error) {
	if len(it.Segments) == 0 {
		return 0, 0, fmt.Errorf("itinerary has no segments")
	}

	if elapsedSeconds <= 0 {
		first := it.Segments[0].From
		return first.Lat, first.Lon, nil
	}
	if elapsedSeconds >= it.TotalTime {
		last := it.Segments[len(it.Segments)-1].To
		return last.Lat, last.Lon, nil
	}

	cumulative := 0.0
	for _, seg := range it.Segments {
		// Waiting happens before the ride starts moving.
		waitEnd := cumulative + seg.Wait
		if elapsedSeconds < waitEnd {
			return seg.From.Lat, seg.From.Lon, nil
		}
		cumulative = waitEnd

		segEnd := cumulative + seg.Duration
		if elapsedSeconds < segEnd {
			progress := 0.0
			if seg.Duration > 0 {
				progress = (elapsedSeconds - cumulative) / seg.Duration
			}
			lat, lon = linearInterpolate(seg.From.Lat, seg.From.Lon, seg.To.Lat, seg.To.Lon, progress)
			return lat, lon, nil
		}
		cumulative = segEnd
	}

	last := it.Segments[len(it.Segments)-1].To
	return last.Lat, last.Lon, nil
}

// EstimateProgress calculates completion along an itinerary as a fraction.
func EstimateProgress(elapsedSeconds, totalSeconds float64) float64 {
	if totalSeconds <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, elapsedSeconds/totalSeconds))
}

func linearInterpolate(lat1, lon1, lat2, lon2, progress float64) (lat, lon float64) {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	lat = lat1 + (lat2-lat1)*progress
	lon = lon1 + (lon2-lon1)*progress
	return lat, lon
}
