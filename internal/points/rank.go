package points

import (
	"context"
	"sort"
)

type Standing struct {
	UserID        int64   `json:"user_id"`
	Rank          int     `json:"rank"`
	Points        int     `json:"points"`
	TotalStudents int     `json:"total_students"`
	Percentile    float64 `json:"percentile"` // top X%
}

// Rank: место ученика среди всех учеников по сохранённым баллам (с 1).
// Считается целиком на каждый запрос: O(n) по ученикам.
func (a *Aggregator) Rank(ctx context.Context, userID int64) (Standing, error) {
	all, err := a.store.StudentStandings(ctx)
	if err != nil {
		return Standing{}, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Points != all[j].Points {
			return all[i].Points > all[j].Points
		}
		return all[i].UserID < all[j].UserID
	})
	for i, s := range all {
		if s.UserID != userID {
			continue
		}
		return Standing{
			UserID:        userID,
			Rank:          i + 1,
			Points:        s.Points,
			TotalStudents: len(all),
			Percentile:    float64(i+1) * 100 / float64(len(all)),
		}, nil
	}
	return Standing{UserID: userID, TotalStudents: len(all)}, ErrNotRanked
}
