package capacity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// ErrCourseFull is returned when a seat reservation would exceed capacity.
var ErrCourseFull = errors.New("course is at capacity")

// Manager serializes seat accounting per course. Every mutation locks the
// course_seats row FOR UPDATE, so two concurrent enrollments for the last
// seat resolve to one active enrollment and one waitlist entry.
type Manager interface {
	// Snapshot returns the current seat counters without locking.
	Snapshot(ctx context.Context, courseID uuid.UUID) (*models.CourseSeat, error)
	// ReserveSeat takes one seat inside tx, failing with ErrCourseFull when
	// capacity (nil = unlimited) is exhausted.
	ReserveSeat(tx *gorm.DB, courseID uuid.UUID, capacity *int) error
	// ReleaseSeat returns one seat inside tx.
	ReleaseSeat(tx *gorm.DB, courseID uuid.UUID) error
	// NextWaitlistPosition hands out the next queue position inside tx.
	NextWaitlistPosition(tx *gorm.DB, courseID uuid.UUID) (int, error)
	// HasFreeSeat reports seat availability inside tx while holding the lock.
	HasFreeSeat(tx *gorm.DB, courseID uuid.UUID, capacity *int) (bool, error)
}

type manager struct {
	db *gorm.DB
}

// NewManager builds a seat manager backed by the provided database.
func NewManager(db *gorm.DB) (Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	return &manager{db: db}, nil
}

func (m *manager) Snapshot(ctx context.Context, courseID uuid.UUID) (*models.CourseSeat, error) {
	var seat models.CourseSeat
	err := m.db.WithContext(ctx).Where("course_id = ?", courseID).First(&seat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.CourseSeat{CourseID: courseID, NextWaitlistPosition: 1}, nil
		}
		return nil, err
	}
	return &seat, nil
}

func (m *manager) ReserveSeat(tx *gorm.DB, courseID uuid.UUID, capacity *int) error {
	seat, err := m.lock(tx, courseID)
	if err != nil {
		return err
	}
	if capacity != nil && seat.ActiveCount >= *capacity {
		return ErrCourseFull
	}
	seat.ActiveCount++
	return tx.Save(seat).Error
}

func (m *manager) ReleaseSeat(tx *gorm.DB, courseID uuid.UUID) error {
	seat, err := m.lock(tx, courseID)
	if err != nil {
		return err
	}
	if seat.ActiveCount > 0 {
		seat.ActiveCount--
	}
	return tx.Save(seat).Error
}

func (m *manager) NextWaitlistPosition(tx *gorm.DB, courseID uuid.UUID) (int, error) {
	seat, err := m.lock(tx, courseID)
	if err != nil {
		return 0, err
	}
	if seat.NextWaitlistPosition > 1 {
		// Once the queue drains, positions start over at 1.
		var waitlisted int64
		err := tx.Model(&models.Enrollment{}).
			Where("course_id = ? AND status = ?", courseID, enums.EnrollmentStatusWaitlisted).
			Count(&waitlisted).Error
		if err != nil {
			return 0, err
		}
		if waitlisted == 0 {
			seat.NextWaitlistPosition = 1
		}
	}
	position := seat.NextWaitlistPosition
	seat.NextWaitlistPosition++
	if err := tx.Save(seat).Error; err != nil {
		return 0, err
	}
	return position, nil
}

func (m *manager) HasFreeSeat(tx *gorm.DB, courseID uuid.UUID, capacity *int) (bool, error) {
	if capacity == nil {
		return true, nil
	}
	seat, err := m.lock(tx, courseID)
	if err != nil {
		return false, err
	}
	return seat.ActiveCount < *capacity, nil
}

// lock fetches the seat row FOR UPDATE, inserting it on first use.
func (m *manager) lock(tx *gorm.DB, courseID uuid.UUID) (*models.CourseSeat, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if courseID == uuid.Nil {
		return nil, errors.New("course id is required")
	}

	var seat models.CourseSeat
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("course_id = ?", courseID).
		First(&seat).Error
	if err == nil {
		return &seat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	seat = models.CourseSeat{CourseID: courseID, ActiveCount: 0, NextWaitlistPosition: 1}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seat).Error; err != nil {
		return nil, err
	}
	// Re-read under lock; another tx may have inserted the row first.
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("course_id = ?", courseID).
		First(&seat).Error; err != nil {
		return nil, err
	}
	return &seat, nil
}
