package capacity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
)

func TestReserveSeatRespectsCapacity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	mgr := newTestManager(t, db)
	courseID := uuid.New()
	capTwo := 2

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return mgr.ReserveSeat(tx, courseID, &capTwo)
		})
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return mgr.ReserveSeat(tx, courseID, &capTwo)
	})
	if !errors.Is(err, ErrCourseFull) {
		t.Fatalf("expected ErrCourseFull, got %v", err)
	}

	seat, err := mgr.Snapshot(context.Background(), courseID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if seat.ActiveCount != 2 {
		t.Fatalf("expected 2 active seats, got %d", seat.ActiveCount)
	}
}

func TestReserveSeatUnlimitedCapacity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	mgr := newTestManager(t, db)
	courseID := uuid.New()

	for i := 0; i < 5; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return mgr.ReserveSeat(tx, courseID, nil)
		})
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
	}

	seat, err := mgr.Snapshot(context.Background(), courseID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if seat.ActiveCount != 5 {
		t.Fatalf("expected 5 active seats, got %d", seat.ActiveCount)
	}
}

func TestReleaseSeatNeverGoesNegative(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	mgr := newTestManager(t, db)
	courseID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return mgr.ReleaseSeat(tx, courseID)
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	seat, err := mgr.Snapshot(context.Background(), courseID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if seat.ActiveCount != 0 {
		t.Fatalf("expected 0 active seats, got %d", seat.ActiveCount)
	}
}

func TestNextWaitlistPositionMonotonic(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	mgr := newTestManager(t, db)
	courseID := uuid.New()

	positions := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			pos, terr := mgr.NextWaitlistPosition(tx, courseID)
			if terr != nil {
				return terr
			}
			positions = append(positions, pos)
			return nil
		})
		if err != nil {
			t.Fatalf("next position %d: %v", i, err)
		}
		addWaitlisted(t, db, courseID, positions[i])
	}

	for i, pos := range positions {
		if pos != i+1 {
			t.Fatalf("expected position %d, got %d", i+1, pos)
		}
	}
}

func TestNextWaitlistPositionResetsAfterDrain(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	mgr := newTestManager(t, db)
	courseID := uuid.New()

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			pos, terr := mgr.NextWaitlistPosition(tx, courseID)
			if terr != nil {
				return terr
			}
			addWaitlisted(t, tx, courseID, pos)
			return nil
		})
		if err != nil {
			t.Fatalf("next position %d: %v", i, err)
		}
	}

	// Everyone leaves the queue.
	err := db.Exec(
		"UPDATE enrollments SET status = ? WHERE course_id = ?",
		enums.EnrollmentStatusWithdrawn, courseID,
	).Error
	if err != nil {
		t.Fatalf("drain waitlist: %v", err)
	}

	var next int
	err = db.Transaction(func(tx *gorm.DB) error {
		pos, terr := mgr.NextWaitlistPosition(tx, courseID)
		next = pos
		return terr
	})
	if err != nil {
		t.Fatalf("next position after drain: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected position 1 after the waitlist drained, got %d", next)
	}
}

func TestReserveSeatConcurrentNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	mgr := newTestManager(t, db)
	courseID := uuid.New()
	capThree := 3
	const contenders = 8

	var wg sync.WaitGroup
	var full int32
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				return mgr.ReserveSeat(tx, courseID, &capThree)
			})
			if errors.Is(err, ErrCourseFull) {
				atomic.AddInt32(&full, 1)
			} else if err != nil {
				t.Errorf("reserve: %v", err)
			}
		}()
	}
	wg.Wait()

	seat, err := mgr.Snapshot(context.Background(), courseID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if seat.ActiveCount != capThree {
		t.Fatalf("expected %d active seats, got %d", capThree, seat.ActiveCount)
	}
	if got := int(full); got != contenders-capThree {
		t.Fatalf("expected %d rejections, got %d", contenders-capThree, got)
	}
}

func TestHasFreeSeat(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	mgr := newTestManager(t, db)
	courseID := uuid.New()
	capOne := 1

	err := db.Transaction(func(tx *gorm.DB) error {
		free, terr := mgr.HasFreeSeat(tx, courseID, &capOne)
		if terr != nil {
			return terr
		}
		if !free {
			t.Fatal("expected free seat before any reservation")
		}
		return mgr.ReserveSeat(tx, courseID, &capOne)
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		free, terr := mgr.HasFreeSeat(tx, courseID, &capOne)
		if terr != nil {
			return terr
		}
		if free {
			t.Fatal("expected no free seat at capacity")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
}

func newTestManager(t *testing.T, db *gorm.DB) Manager {
	t.Helper()
	mgr, err := NewManager(db)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return mgr
}

func addWaitlisted(t *testing.T, db *gorm.DB, courseID uuid.UUID, position int) {
	t.Helper()
	err := db.Exec(
		"INSERT INTO enrollments (id, user_id, course_id, status, waitlist_position) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), uuid.NewString(), courseID, enums.EnrollmentStatusWaitlisted, position,
	).Error
	if err != nil {
		t.Fatalf("seed waitlisted enrollment: %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:capacity_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw handle: %v", err)
	}
	// sqlite has no row locks; a single connection serializes transactions
	// the way the FOR UPDATE clause does in Postgres.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.CourseSeat{}); err != nil {
		t.Fatalf("migrate course seats: %v", err)
	}
	// The enrollment schema carries Postgres defaults sqlite cannot parse,
	// so the count target gets a hand-rolled table instead of AutoMigrate.
	err = db.Exec(`CREATE TABLE enrollments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		status TEXT NOT NULL,
		waitlist_position INTEGER
	)`).Error
	if err != nil {
		t.Fatalf("create enrollments table: %v", err)
	}
	return db
}
