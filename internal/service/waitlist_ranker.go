package service

import (
	"sort"
	"time"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

const (
	defaultReliability = 0.5
	reliabilityEpsilon = 0.01
)

// Reliability is the share of a user's attendances that were verified, or
// 0.5 for a user with no history.
func Reliability(verified, total int) float64 {
	if total <= 0 {
		return defaultReliability
	}
	return float64(verified) / float64(total)
}

// RankWaitlist orders candidates for promotion and returns at most
// freeSlots of them. A negative freeSlots returns the full ordering.
// Priority wins first, then reliability (differences within 0.01 count as
// equal), then the longer wait. The input slice is not modified.
func RankWaitlist(candidates []models.WaitlistCandidate, freeSlots int, now time.Time) []models.WaitlistCandidate {
	ranked := make([]models.WaitlistCandidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].Reliability = Reliability(ranked[i].VerifiedAttended, ranked[i].TotalAttendances)
		ranked[i].WaitTimeSeconds = int64(now.Sub(ranked[i].CreatedAt) / time.Second)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.IsPriority != b.IsPriority {
			return a.IsPriority
		}
		if diff := a.Reliability - b.Reliability; diff > reliabilityEpsilon || diff < -reliabilityEpsilon {
			return diff > 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.RegistrationID < b.RegistrationID
	})

	if freeSlots >= 0 && freeSlots < len(ranked) {
		ranked = ranked[:freeSlots]
	}
	return ranked
}
