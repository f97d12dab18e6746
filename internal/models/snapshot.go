package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SolutionSnapshot is a persisted copy of a loaded solution payload.
type SolutionSnapshot struct {
	ID          string         `db:"id" json:"id"`
	JobID       string         `db:"job_id" json:"jobId"`
	Score       string         `db:"score" json:"score"`
	LessonCount int            `db:"lesson_count" json:"lessonCount"`
	ClassCount  int            `db:"class_count" json:"classCount"`
	Payload     types.JSONText `db:"payload" json:"-"`
	LoadedAt    time.Time      `db:"loaded_at" json:"loadedAt"`
}
