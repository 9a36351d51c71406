package enums

import "fmt"

// EntitlementStatus tracks whether an access grant is usable.
type EntitlementStatus string

const (
	EntitlementStatusActive    EntitlementStatus = "active"
	EntitlementStatusRevoked   EntitlementStatus = "revoked"
	EntitlementStatusExpired   EntitlementStatus = "expired"
	EntitlementStatusSuspended EntitlementStatus = "suspended"
	EntitlementStatusPending   EntitlementStatus = "pending"
)

var validEntitlementStatuses = []EntitlementStatus{
	EntitlementStatusActive,
	EntitlementStatusRevoked,
	EntitlementStatusExpired,
	EntitlementStatusSuspended,
	EntitlementStatusPending,
}

// String implements fmt.Stringer.
func (s EntitlementStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EntitlementStatus.
func (s EntitlementStatus) IsValid() bool {
	for _, candidate := range validEntitlementStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEntitlementStatus converts raw input into an EntitlementStatus.
func ParseEntitlementStatus(value string) (EntitlementStatus, error) {
	for _, candidate := range validEntitlementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entitlement status %q", value)
}
