package enums

import "fmt"

// EnrollmentPolicy selects which enrollment procedure governs a course.
type EnrollmentPolicy string

const (
	EnrollmentPolicyOpen             EnrollmentPolicy = "open"
	EnrollmentPolicyApprovalRequired EnrollmentPolicy = "approval_required"
	EnrollmentPolicyPaid             EnrollmentPolicy = "paid"
	EnrollmentPolicyInviteOnly       EnrollmentPolicy = "invite_only"
	EnrollmentPolicyVoucherOnly      EnrollmentPolicy = "voucher_only"
	EnrollmentPolicyCohortBased      EnrollmentPolicy = "cohort_based"
	EnrollmentPolicyCorporateBulk    EnrollmentPolicy = "corporate_bulk"
)

var validEnrollmentPolicies = []EnrollmentPolicy{
	EnrollmentPolicyOpen,
	EnrollmentPolicyApprovalRequired,
	EnrollmentPolicyPaid,
	EnrollmentPolicyInviteOnly,
	EnrollmentPolicyVoucherOnly,
	EnrollmentPolicyCohortBased,
	EnrollmentPolicyCorporateBulk,
}

// String implements fmt.Stringer.
func (p EnrollmentPolicy) String() string {
	return string(p)
}

// IsValid reports whether the value is a known EnrollmentPolicy.
func (p EnrollmentPolicy) IsValid() bool {
	for _, candidate := range validEnrollmentPolicies {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseEnrollmentPolicy converts raw input into an EnrollmentPolicy.
func ParseEnrollmentPolicy(value string) (EnrollmentPolicy, error) {
	for _, candidate := range validEnrollmentPolicies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid enrollment policy %q", value)
}
