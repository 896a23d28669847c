package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

func TestReliability(t *testing.T) {
	assert.Equal(t, 0.5, Reliability(0, 0))
	assert.Equal(t, 1.0, Reliability(4, 4))
	assert.InDelta(t, 0.25, Reliability(1, 4), 1e-9)
}

func TestRankWaitlistOrdering(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	candidates := []models.WaitlistCandidate{
		{RegistrationID: "fresh", UserID: "u1", CreatedAt: now.Add(-time.Hour)},
		{RegistrationID: "reliable", UserID: "u2", CreatedAt: now.Add(-time.Minute), VerifiedAttended: 9, TotalAttendances: 10},
		{RegistrationID: "priority", UserID: "u3", IsPriority: true, CreatedAt: now, VerifiedAttended: 0, TotalAttendances: 3},
		{RegistrationID: "oldest", UserID: "u4", CreatedAt: now.Add(-2 * time.Hour)},
		{RegistrationID: "flaky", UserID: "u5", CreatedAt: now.Add(-3 * time.Hour), VerifiedAttended: 1, TotalAttendances: 5},
	}

	ranked := RankWaitlist(candidates, -1, now)

	ids := make([]string, 0, len(ranked))
	for _, c := range ranked {
		ids = append(ids, c.RegistrationID)
	}
	assert.Equal(t, []string{"priority", "reliable", "oldest", "fresh", "flaky"}, ids)
	assert.Equal(t, int64(7200), ranked[2].WaitTimeSeconds)
	assert.InDelta(t, 0.9, ranked[1].Reliability, 1e-9)
	assert.Zero(t, candidates[0].Reliability, "input must not be modified")
}

func TestRankWaitlistTreatsCloseReliabilityAsEqual(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	candidates := []models.WaitlistCandidate{
		// 0.505 vs default 0.5: within tolerance, so wait time decides.
		{RegistrationID: "slightly-better", CreatedAt: now.Add(-time.Minute), VerifiedAttended: 101, TotalAttendances: 200},
		{RegistrationID: "waited-longer", CreatedAt: now.Add(-time.Hour)},
	}

	ranked := RankWaitlist(candidates, -1, now)
	require.Len(t, ranked, 2)
	assert.Equal(t, "waited-longer", ranked[0].RegistrationID)
}

func TestRankWaitlistLimitsToFreeSlots(t *testing.T) {
	now := time.Now()
	candidates := []models.WaitlistCandidate{
		{RegistrationID: "a", CreatedAt: now.Add(-3 * time.Minute)},
		{RegistrationID: "b", CreatedAt: now.Add(-2 * time.Minute)},
		{RegistrationID: "c", CreatedAt: now.Add(-time.Minute)},
	}

	assert.Len(t, RankWaitlist(candidates, 2, now), 2)
	assert.Empty(t, RankWaitlist(candidates, 0, now))
	assert.Len(t, RankWaitlist(candidates, 10, now), 3)
	assert.Empty(t, RankWaitlist(nil, 3, now))
}
