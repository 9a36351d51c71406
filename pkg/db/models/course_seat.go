package models

import (
	"time"

	"github.com/google/uuid"
)

// CourseSeat is the per-course serialization row for seat accounting. All
// capacity checks, waitlist position grants and promotions lock this row
// FOR UPDATE so concurrent enrollments cannot oversell the course.
type CourseSeat struct {
	CourseID             uuid.UUID `gorm:"column:course_id;type:uuid;primaryKey"`
	ActiveCount          int       `gorm:"column:active_count;not null;default:0"`
	NextWaitlistPosition int       `gorm:"column:next_waitlist_position;not null;default:1"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CourseSeat) TableName() string {
	return "course_seats"
}
