package services

import (
	"testing"

	"github.com/rentradar/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendCollaborativeScoresPeerEngagement(t *testing.T) {
	activities := &fakeActivityRepo{}
	// Target user touched vehicles 1 and 2.
	activities.add(1, models.ActivityView, models.EntityVehicle, 1)
	activities.add(1, models.ActivityView, models.EntityVehicle, 2)
	// Peer 2 shares both and booked vehicle 3.
	activities.add(2, models.ActivityView, models.EntityVehicle, 1)
	activities.add(2, models.ActivityView, models.EntityVehicle, 2)
	activities.add(2, models.ActivityBook, models.EntityVehicle, 3)
	// Peer 3 shares one and favorited vehicle 4.
	activities.add(3, models.ActivityView, models.EntityVehicle, 2)
	activities.add(3, models.ActivityFavorite, models.EntityVehicle, 4)

	service := NewCollaborativeService(activities, testEngine(), testLogger())
	scored, err := service.RecommendCollaborative(1, models.EntityVehicle, 10)
	require.NoError(t, err)
	require.Len(t, scored, 2)

	// Booking (5) outranks favorite (3); scores normalize by the maximum.
	assert.Equal(t, uint(3), scored[0].EntityID)
	assert.Equal(t, 1.0, scored[0].Score)
	assert.Equal(t, uint(4), scored[1].EntityID)
	assert.InDelta(t, 0.6, scored[1].Score, 1e-9)
}

func TestRecommendCollaborativeExcludesTouchedListings(t *testing.T) {
	activities := &fakeActivityRepo{}
	activities.add(1, models.ActivityView, models.EntityVehicle, 1)
	// The peer only engaged with listings the user already touched.
	activities.add(2, models.ActivityView, models.EntityVehicle, 1)
	activities.add(2, models.ActivityBook, models.EntityVehicle, 1)

	service := NewCollaborativeService(activities, testEngine(), testLogger())
	scored, err := service.RecommendCollaborative(1, models.EntityVehicle, 10)

	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestRecommendCollaborativeEmptyHistory(t *testing.T) {
	service := NewCollaborativeService(&fakeActivityRepo{}, testEngine(), testLogger())

	scored, err := service.RecommendCollaborative(1, models.EntityVehicle, 10)

	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestRecommendCollaborativeNoPeers(t *testing.T) {
	activities := &fakeActivityRepo{}
	activities.add(1, models.ActivityView, models.EntityVehicle, 1)
	// Other activity exists but shares nothing with the user.
	activities.add(2, models.ActivityView, models.EntityVehicle, 9)

	service := NewCollaborativeService(activities, testEngine(), testLogger())
	scored, err := service.RecommendCollaborative(1, models.EntityVehicle, 10)

	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestRecommendCollaborativeTieBreaksByEntityID(t *testing.T) {
	activities := &fakeActivityRepo{}
	activities.add(1, models.ActivityView, models.EntityVehicle, 1)
	activities.add(2, models.ActivityView, models.EntityVehicle, 1)
	activities.add(2, models.ActivityFavorite, models.EntityVehicle, 8)
	activities.add(2, models.ActivityFavorite, models.EntityVehicle, 5)

	service := NewCollaborativeService(activities, testEngine(), testLogger())
	scored, err := service.RecommendCollaborative(1, models.EntityVehicle, 10)
	require.NoError(t, err)
	require.Len(t, scored, 2)

	assert.Equal(t, uint(5), scored[0].EntityID)
	assert.Equal(t, uint(8), scored[1].EntityID)
}

func TestRecommendCollaborativeHonorsLimit(t *testing.T) {
	activities := &fakeActivityRepo{}
	activities.add(1, models.ActivityView, models.EntityVehicle, 1)
	activities.add(2, models.ActivityView, models.EntityVehicle, 1)
	for id := uint(10); id < 20; id++ {
		activities.add(2, models.ActivityView, models.EntityVehicle, id)
	}

	service := NewCollaborativeService(activities, testEngine(), testLogger())
	scored, err := service.RecommendCollaborative(1, models.EntityVehicle, 3)

	require.NoError(t, err)
	assert.Len(t, scored, 3)
}
