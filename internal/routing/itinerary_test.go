package routing

import (
	"testing"

	"github.com/rutagdl/ruta_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectChainRejectsNonSeedStart(t *testing.T) {
	// A chain whose first label carries an edge is corrupted state
	edge := transit(1, 2, 360, "R1", "SH1")
	bad := &searchLabel{node: 2, via: &edge}

	_, err := collectChain(bad)
	assert.ErrorIs(t, err, ErrBrokenChain)
}

func TestCollectChainRejectsMissingEdge(t *testing.T) {
	seed := &searchLabel{node: 1}
	bad := &searchLabel{node: 2, prev: seed} // no via edge

	_, err := collectChain(bad)
	assert.ErrorIs(t, err, ErrBrokenChain)
}

func TestCollectChainRejectsDisconnectedEdge(t *testing.T) {
	seed := &searchLabel{node: 1}
	edge := transit(7, 2, 360, "R1", "SH1") // does not leave node 1
	bad := &searchLabel{node: 2, prev: seed, via: &edge}

	_, err := collectChain(bad)
	assert.ErrorIs(t, err, ErrBrokenChain)
}

func TestCollectChainValid(t *testing.T) {
	seed := &searchLabel{node: 1, cost: 216}
	e12 := transit(1, 2, 360, "R1", "SH1")
	l2 := &searchLabel{node: 2, prev: seed, via: &e12, cost: 216 + 600 + 360, wait: 600}

	chain, err := collectChain(l2)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, int64(1), chain[0].node)
	assert.Equal(t, int64(2), chain[1].node)
}

func TestBuildItineraryMergesConsecutiveWalks(t *testing.T) {
	g := corridorGraph()
	e := NewEngine(g)

	seed := &searchLabel{node: 1, cost: 100}
	walkEdge := models.Edge{FromNodeID: 1, ToNodeID: 2, Kind: models.EdgeWalk, Duration: 50}
	l2 := &searchLabel{node: 2, prev: seed, via: &walkEdge, cost: 150}

	origin := placeAt(models.OriginNodeID, 0, -200)
	dest := placeAt(models.DestinationNodeID, 5000, 200)

	it, err := e.buildItinerary(l2, origin, dest, 30)
	require.NoError(t, err)

	// access walk + graph walk + egress walk collapse into one segment
	require.Len(t, it.Segments, 1)
	assert.Equal(t, models.EdgeWalk, it.Segments[0].Mode)
	assert.InDelta(t, 180, it.Segments[0].Duration, 0.001)
	assert.Equal(t, models.OriginNodeID, it.Segments[0].From.NodeID)
	assert.Equal(t, models.DestinationNodeID, it.Segments[0].To.NodeID)
}

func TestBuildItineraryRouteMetadata(t *testing.T) {
	g := corridorGraph()
	e := NewEngine(g)

	seed := &searchLabel{node: 1, cost: 216}
	e12 := transit(1, 2, 360, "R1", "SH1")
	l2 := &searchLabel{node: 2, prev: seed, via: &e12, cost: 216 + 600 + 360, wait: 600}

	origin := placeAt(models.OriginNodeID, 0, -300)
	dest := placeAt(models.DestinationNodeID, 5000, 300)

	it, err := e.buildItinerary(l2, origin, dest, 216)
	require.NoError(t, err)

	var ride *models.Segment
	for i, s := range it.Segments {
		if s.Mode == models.EdgeTransit {
			ride = &it.Segments[i]
		}
	}
	require.NotNil(t, ride)
	require.NotNil(t, ride.Route)
	assert.Equal(t, "Línea 1", ride.Route.Name)
	assert.Equal(t, models.ModeBus, ride.Route.Mode)
}
