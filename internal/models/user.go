package models

import "time"

type Role string

const (
	Student    Role = "student"
	Instructor Role = "instructor"
	Admin      Role = "admin"
	Staff      Role = "staff"
)

// CanManage: роли, которым доступны чужие данные и админские операции.
func (r Role) CanManage() bool {
	return r == Instructor || r == Admin || r == Staff
}

func (r Role) Valid() bool {
	switch r {
	case Student, Instructor, Admin, Staff:
		return true
	}
	return false
}

type User struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Role          Role      `db:"role" json:"role"`
	Points        int       `db:"points" json:"points"`
	PointsVersion int64     `db:"points_version" json:"-"`
	TelegramID    int64     `db:"telegram_id" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// StudentPoints: строка рейтинга: сохранённый итог ученика.
type StudentPoints struct {
	UserID int64  `db:"id" json:"user_id"`
	Name   string `db:"name" json:"name"`
	Points int    `db:"points" json:"points"`
}

// Overview: агрегаты для админки.
type Overview struct {
	Students       int     `json:"students"`
	TotalPoints    int     `json:"total_points"`
	AveragePoints  float64 `json:"average_points"`
	MaxPoints      int     `json:"max_points"`
	Videos         int     `json:"videos"`
	Challenges     int     `json:"active_challenges"`
	QuizGrades     int     `json:"quiz_grades"`
	PresentRecords int     `json:"present_records"`
}
