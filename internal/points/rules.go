package points

import "github.com/Spok95/lms-points/internal/models"

const (
	VideoPoints      = 100
	AttendancePoints = 100

	// Ответ на удалённый челлендж: ценности челленджа взять негде.
	fallbackCompleted = 10
	fallbackTried     = 5

	watchHalfPoints = 50
)

// ChallengePoints: баллы за ответ по ТЕКУЩИМ ценностям челленджа.
// «Not Completed» всегда 0, даже если у челленджа задан points_not_completed.
func ChallengePoints(r models.ChallengeResponse) int {
	switch r.Status {
	case models.ChallengeCompleted:
		if r.Challenge == nil {
			return fallbackCompleted
		}
		return r.Challenge.PointsCompleted
	case models.ChallengeTried:
		if r.Challenge == nil {
			return fallbackTried
		}
		return r.Challenge.PointsTried
	default:
		return 0
	}
}

// WatchPoints: начисление за просмотр по порогам: 50% → 50, 100% → 100.
func WatchPoints(percentage int) int {
	switch {
	case percentage >= 100:
		return VideoPoints
	case percentage >= 50:
		return watchHalfPoints
	default:
		return 0
	}
}

// MergeWatchProgress применяет новое событие просмотра к сохранённому.
// Процент и начисленные баллы только растут; prev == nil: первая запись.
func MergeWatchProgress(prev *models.WatchProgress, next models.WatchProgress) models.WatchProgress {
	if next.WatchPercentage < 0 {
		next.WatchPercentage = 0
	}
	if next.WatchPercentage > 100 {
		next.WatchPercentage = 100
	}
	next.PointsAwarded = WatchPoints(next.WatchPercentage)
	if prev == nil {
		return next
	}
	if prev.WatchPercentage > next.WatchPercentage {
		next.WatchPercentage = prev.WatchPercentage
	}
	if prev.PointsAwarded > next.PointsAwarded {
		next.PointsAwarded = prev.PointsAwarded
	}
	if next.Title == "" {
		next.Title = prev.Title
	}
	return next
}
