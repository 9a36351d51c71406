package enums

import "fmt"

// AuditAction labels an entry in the audit log.
type AuditAction string

const (
	AuditEnrollmentRequested AuditAction = "enrollment_requested"
	AuditEnrollmentActivated AuditAction = "enrollment_activated"
	AuditEnrollmentWaitlisted AuditAction = "enrollment_waitlisted"
	AuditEnrollmentApproved  AuditAction = "enrollment_approved"
	AuditEnrollmentDenied    AuditAction = "enrollment_denied"
	AuditEnrollmentWithdrawn AuditAction = "enrollment_withdrawn"
	AuditEnrollmentPromoted  AuditAction = "enrollment_promoted"
	AuditEnrollmentCompleted AuditAction = "enrollment_completed"
	AuditEnrollmentExpired   AuditAction = "enrollment_expired"
	AuditEnrollmentDropped   AuditAction = "enrollment_dropped"
	AuditEnrollmentSuspended AuditAction = "enrollment_suspended"
	AuditVoucherRedeemed     AuditAction = "voucher_redeemed"
	AuditVoucherReleased     AuditAction = "voucher_released"
	AuditPaymentInitiated    AuditAction = "payment_initiated"
	AuditPaymentSucceeded    AuditAction = "payment_succeeded"
	AuditPaymentFailed       AuditAction = "payment_failed"
	AuditRefundRequested     AuditAction = "refund_requested"
	AuditRefundCompleted     AuditAction = "refund_completed"
	AuditEntitlementsGranted AuditAction = "entitlements_granted"
	AuditEntitlementsRevoked AuditAction = "entitlements_revoked"
	AuditBulkEnrollment      AuditAction = "bulk_enrollment"
)

var validAuditActions = []AuditAction{
	AuditEnrollmentRequested,
	AuditEnrollmentActivated,
	AuditEnrollmentWaitlisted,
	AuditEnrollmentApproved,
	AuditEnrollmentDenied,
	AuditEnrollmentWithdrawn,
	AuditEnrollmentPromoted,
	AuditEnrollmentCompleted,
	AuditEnrollmentExpired,
	AuditEnrollmentDropped,
	AuditEnrollmentSuspended,
	AuditVoucherRedeemed,
	AuditVoucherReleased,
	AuditPaymentInitiated,
	AuditPaymentSucceeded,
	AuditPaymentFailed,
	AuditRefundRequested,
	AuditRefundCompleted,
	AuditEntitlementsGranted,
	AuditEntitlementsRevoked,
	AuditBulkEnrollment,
}

func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known audit action.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
