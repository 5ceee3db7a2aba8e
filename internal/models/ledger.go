package models

import "time"

type Category string

const (
	CategoryVideo      Category = "Video"
	CategoryQuiz       Category = "Quiz"
	CategoryChallenge  Category = "Challenge"
	CategoryAttendance Category = "Attendance"
)

// LedgerEntry: одна строка истории начислений.
type LedgerEntry struct {
	ID       string    `json:"id"`
	Category Category  `json:"category"`
	Title    string    `json:"title"`
	Points   int       `json:"points"`
	At       time.Time `json:"at"`
}
