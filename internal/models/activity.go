package models

import "time"

type Video struct {
	ID          int64  `db:"id" json:"id"`
	ClassNumber int    `db:"class_number" json:"class_number"`
	Title       string `db:"title" json:"title"`
}

type VideoCompletion struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	VideoID     int64     `db:"video_id" json:"video_id"`
	Title       string    `db:"title" json:"title"`
	IsCompleted bool      `db:"is_completed" json:"is_completed"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

type WatchProgress struct {
	UserID          int64     `db:"user_id" json:"user_id"`
	VideoID         int64     `db:"video_id" json:"video_id"`
	Title           string    `db:"title" json:"title"`
	WatchPercentage int       `db:"watch_percentage" json:"watch_percentage"`
	PointsAwarded   int       `db:"points_awarded" json:"points_awarded"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

type QuizGrade struct {
	UserID     int64      `db:"user_id" json:"user_id"`
	QuizNumber int        `db:"quiz_number" json:"quiz_number"`
	Grade      int        `db:"grade" json:"grade"`
	Feedback   *string    `db:"feedback" json:"feedback,omitempty"`
	GradedAt   *time.Time `db:"graded_at" json:"graded_at,omitempty"`
}

type ChallengeStatus string

const (
	ChallengeCompleted    ChallengeStatus = "Completed"
	ChallengeTried        ChallengeStatus = "Tried"
	ChallengeNotCompleted ChallengeStatus = "Not Completed"
)

type Challenge struct {
	ID                 int64  `db:"id" json:"id"`
	ClassNumber        int    `db:"class_number" json:"class_number"`
	Number             int    `db:"number" json:"number"`
	Topic              string `db:"topic" json:"topic"`
	Description        string `db:"description" json:"description"`
	PointsCompleted    int    `db:"points_completed" json:"points_completed"`
	PointsTried        int    `db:"points_tried" json:"points_tried"`
	PointsNotCompleted int    `db:"points_not_completed" json:"points_not_completed"`
	IsActive           bool   `db:"is_active" json:"is_active"`
}

// ChallengePoints: текущие ценности челленджа, подтянутые join'ом к ответу.
type ChallengePoints struct {
	ClassNumber     int    `json:"class_number"`
	Number          int    `json:"number"`
	Topic           string `json:"topic"`
	PointsCompleted int    `json:"points_completed"`
	PointsTried     int    `json:"points_tried"`
}

type ChallengeResponse struct {
	UserID      int64            `db:"user_id" json:"user_id"`
	ChallengeID int64            `db:"challenge_id" json:"challenge_id"`
	Status      ChallengeStatus  `db:"status" json:"status"`
	SubmittedAt time.Time        `db:"submitted_at" json:"submitted_at"`
	Challenge   *ChallengePoints `json:"challenge,omitempty"` // nil: челлендж удалён
}

type AttendanceStatus string

const (
	Present AttendanceStatus = "Present"
	Absent  AttendanceStatus = "Absent"
	Leave   AttendanceStatus = "Leave"
)

type AttendanceRecord struct {
	UserID      int64            `db:"user_id" json:"user_id"`
	ClassNumber int              `db:"class_number" json:"class_number"`
	Status      AttendanceStatus `db:"status" json:"status"`
	SessionDate time.Time        `db:"session_date" json:"session_date"`
	Topic       string           `db:"topic" json:"topic"`
}

// ActivityTotals: сколько активностей ожидается к активному занятию (знаменатели процента).
type ActivityTotals struct {
	Videos     int `json:"videos"`
	Quizzes    int `json:"quizzes"`
	Challenges int `json:"challenges"`
	Classes    int `json:"classes"`
}
