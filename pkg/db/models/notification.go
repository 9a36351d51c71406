package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID        uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	CourseID  *uuid.UUID               `gorm:"column:course_id;type:uuid"`
	Type      enums.NotificationType   `gorm:"type:notification_type;not null"`
	Status    enums.NotificationStatus `gorm:"type:notification_status;not null;default:'pending'"`
	Title     string                   `gorm:"type:text;not null"`
	Message   string                   `gorm:"type:text;not null"`
	Data      json.RawMessage          `gorm:"column:data;type:jsonb"`
	ReadAt    *time.Time               `gorm:"type:timestamptz"`
	SentAt    *time.Time               `gorm:"type:timestamptz"`
	CreatedAt time.Time                `gorm:"type:timestamptz;default:now()"`
}
