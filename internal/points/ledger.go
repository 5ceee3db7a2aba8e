package points

import (
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/lms-points/internal/models"
)

// BuildLedger сводит все источники в одну историю.
// Видео склеиваются по video_id: запись о завершении даёт +100, полный просмотр
// из watch_progress лишь переносит время строки. У оценок за квиз нет времени
// начисления, для них берётся now.
func BuildLedger(s Snapshot, now time.Time) []models.LedgerEntry {
	out := make([]models.LedgerEntry, 0,
		len(s.Videos)+len(s.Quizzes)+len(s.Challenges)+len(s.Attendance))

	videoIdx := make(map[int64]int)
	for _, v := range s.Videos {
		if !v.IsCompleted {
			continue
		}
		if _, dup := videoIdx[v.VideoID]; dup {
			continue
		}
		videoIdx[v.VideoID] = len(out)
		out = append(out, videoEntry(v.VideoID, v.Title, v.CompletedAt))
	}
	for _, w := range s.Watch {
		if w.WatchPercentage < 100 {
			continue
		}
		if i, ok := videoIdx[w.VideoID]; ok {
			if !w.UpdatedAt.IsZero() {
				out[i].At = w.UpdatedAt
			}
			if out[i].Title == defaultVideoTitle(w.VideoID) && w.Title != "" {
				out[i].Title = w.Title
			}
			continue
		}
		videoIdx[w.VideoID] = len(out)
		out = append(out, videoEntry(w.VideoID, w.Title, w.UpdatedAt))
	}

	for _, q := range s.Quizzes {
		at := now
		if q.GradedAt != nil {
			at = *q.GradedAt
		}
		out = append(out, models.LedgerEntry{
			ID:       fmt.Sprintf("quiz:%d", q.QuizNumber),
			Category: models.CategoryQuiz,
			Title:    fmt.Sprintf("Quiz %d", q.QuizNumber),
			Points:   q.Grade,
			At:       at,
		})
	}

	for _, r := range s.Challenges {
		out = append(out, models.LedgerEntry{
			ID:       fmt.Sprintf("challenge:%d", r.ChallengeID),
			Category: models.CategoryChallenge,
			Title:    challengeTitle(r),
			Points:   ChallengePoints(r),
			At:       r.SubmittedAt,
		})
	}

	classes := make(map[int]struct{})
	for _, r := range s.Attendance {
		if r.Status == models.Absent {
			continue
		}
		if _, dup := classes[r.ClassNumber]; dup {
			continue
		}
		classes[r.ClassNumber] = struct{}{}
		pts := 0
		if r.Status == models.Present {
			pts = AttendancePoints
		}
		out = append(out, models.LedgerEntry{
			ID:       fmt.Sprintf("attendance:%d", r.ClassNumber),
			Category: models.CategoryAttendance,
			Title:    attendanceTitle(r),
			Points:   pts,
			At:       r.SessionDate,
		})
	}

	sortLedger(out)
	return out
}

func videoEntry(videoID int64, title string, at time.Time) models.LedgerEntry {
	if strings.TrimSpace(title) == "" {
		title = defaultVideoTitle(videoID)
	}
	return models.LedgerEntry{
		ID:       fmt.Sprintf("video:%d", videoID),
		Category: models.CategoryVideo,
		Title:    title,
		Points:   VideoPoints,
		At:       at,
	}
}

func defaultVideoTitle(videoID int64) string {
	return fmt.Sprintf("Video %d", videoID)
}

func challengeTitle(r models.ChallengeResponse) string {
	if r.Challenge == nil {
		return fmt.Sprintf("Challenge %d (%s)", r.ChallengeID, r.Status)
	}
	t := fmt.Sprintf("Challenge %d.%d", r.Challenge.ClassNumber, r.Challenge.Number)
	if r.Challenge.Topic != "" {
		t += ": " + r.Challenge.Topic
	}
	return t + " (" + string(r.Status) + ")"
}

func attendanceTitle(r models.AttendanceRecord) string {
	t := fmt.Sprintf("Class %d", r.ClassNumber)
	if r.Topic != "" {
		t += ": " + r.Topic
	}
	if r.Status == models.Leave {
		t += " (leave)"
	}
	return t
}
