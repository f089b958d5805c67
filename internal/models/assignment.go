package models

import "time"

// Assignment carries the metadata surfaced on batch report cover pages.
// The full assignment lifecycle (publishing, submissions, grading standards)
// lives in the upstream grading service; this table mirrors only what report
// exports need.
type Assignment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	ClassName   string    `gorm:"size:128" json:"class_name"`
	TeacherName string    `gorm:"size:128" json:"teacher_name"`
	Grade       string    `gorm:"size:32" json:"grade"`
	Genre       string    `gorm:"size:64" json:"genre"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
