package enums

import "fmt"

// NotificationType identifies the template used when rendering a message
// to the learner.
type NotificationType string

const (
	NotificationEnrollmentConfirmed NotificationType = "enrollment_confirmed"
	NotificationEnrollmentPending   NotificationType = "enrollment_pending"
	NotificationEnrollmentApproved  NotificationType = "enrollment_approved"
	NotificationEnrollmentDenied    NotificationType = "enrollment_denied"
	NotificationWaitlistAdded       NotificationType = "waitlist_added"
	NotificationWaitlistPromoted    NotificationType = "waitlist_promoted"
	NotificationWithdrawalConfirmed NotificationType = "withdrawal_confirmed"
	NotificationPaymentFailed       NotificationType = "payment_failed"
	NotificationRefundIssued        NotificationType = "refund_issued"
	NotificationCourseCompleted     NotificationType = "course_completed"
)

var validNotificationTypes = []NotificationType{
	NotificationEnrollmentConfirmed,
	NotificationEnrollmentPending,
	NotificationEnrollmentApproved,
	NotificationEnrollmentDenied,
	NotificationWaitlistAdded,
	NotificationWaitlistPromoted,
	NotificationWithdrawalConfirmed,
	NotificationPaymentFailed,
	NotificationRefundIssued,
	NotificationCourseCompleted,
}

func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known notification type.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationStatus tracks delivery state for a queued notification.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

var validNotificationStatuses = []NotificationStatus{
	NotificationStatusPending,
	NotificationStatusSent,
	NotificationStatusFailed,
}

func (n NotificationStatus) String() string {
	return string(n)
}

// IsValid reports whether the value is a known notification status.
func (n NotificationStatus) IsValid() bool {
	for _, candidate := range validNotificationStatuses {
		if candidate == n {
			return true
		}
	}
	return false
}
