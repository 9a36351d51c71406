package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type txRecord struct {
	ID    int
	Label string
}

func newTestClient(t *testing.T) (*Client, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&txRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &Client{conn: conn}, conn
}

func countRecords(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := conn.Model(&txRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestWithTxCommits(t *testing.T) {
	client, conn := newTestClient(t)
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&txRecord{Label: "kept"}).Error
	})
	if err != nil {
		t.Fatalf("commit path: %v", err)
	}
	if got := countRecords(t, conn); got != 1 {
		t.Fatalf("expected 1 row after commit, got %d", got)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client, conn := newTestClient(t)
	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&txRecord{Label: "doomed"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}
	if got := countRecords(t, conn); got != 0 {
		t.Fatalf("expected rollback to leave 0 rows, got %d", got)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	client, conn := newTestClient(t)
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("panic was swallowed")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			_ = tx.Create(&txRecord{Label: "doomed"}).Error
			panic("mid-transaction")
		})
	}()
	if got := countRecords(t, conn); got != 0 {
		t.Fatalf("expected rollback after panic, got %d rows", got)
	}
}

func TestPing(t *testing.T) {
	client, _ := newTestClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
