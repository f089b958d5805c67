package models

import (
	"time"

	"gorm.io/datatypes"
)

// Evaluation stores the grading outcome of one essay. The evaluation itself
// is kept as the raw JSON payload produced by the grading pipeline; the
// report pipeline normalizes it fresh on every render. Review workflow
// columns are tracked relationally so export policy checks stay cheap.
type Evaluation struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	EssayID      uint           `gorm:"uniqueIndex;not null" json:"essay_id"`
	AssignmentID uint           `gorm:"index;not null" json:"assignment_id"`
	StudentName  string         `gorm:"size:128" json:"student_name"`
	StudentNo    string         `gorm:"size:64" json:"student_no"`
	Payload      datatypes.JSON `gorm:"not null" json:"payload"`
	ReviewStatus string         `gorm:"size:32;not null;default:ai_generated" json:"review_status"`
	ReviewedBy   *uint          `json:"reviewed_by"`
	ReviewedAt   *time.Time     `json:"reviewed_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

const (
	// ReviewStatusAIGenerated indicates no teacher has reviewed the evaluation yet.
	ReviewStatusAIGenerated = "ai_generated"
	// ReviewStatusTeacherReviewed indicates a teacher has inspected the evaluation.
	ReviewStatusTeacherReviewed = "teacher_reviewed"
	// ReviewStatusFinalized indicates the teacher signed the evaluation off for export.
	ReviewStatusFinalized = "finalized"
)

// IsReviewed reports whether the evaluation passed teacher review.
func (e Evaluation) IsReviewed() bool {
	return e.ReviewStatus == ReviewStatusTeacherReviewed || e.ReviewStatus == ReviewStatusFinalized
}
