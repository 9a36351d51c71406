package enums

import "fmt"

// EnrollmentSource records how an enrollment was initiated.
type EnrollmentSource string

const (
	EnrollmentSourceSelf      EnrollmentSource = "self"
	EnrollmentSourceInvite    EnrollmentSource = "invite"
	EnrollmentSourceBulk      EnrollmentSource = "bulk"
	EnrollmentSourceVoucher   EnrollmentSource = "voucher"
	EnrollmentSourceCorporate EnrollmentSource = "corporate"
	EnrollmentSourceAdmin     EnrollmentSource = "admin"
)

var validEnrollmentSources = []EnrollmentSource{
	EnrollmentSourceSelf,
	EnrollmentSourceInvite,
	EnrollmentSourceBulk,
	EnrollmentSourceVoucher,
	EnrollmentSourceCorporate,
	EnrollmentSourceAdmin,
}

// String implements fmt.Stringer.
func (s EnrollmentSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EnrollmentSource.
func (s EnrollmentSource) IsValid() bool {
	for _, candidate := range validEnrollmentSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEnrollmentSource converts raw input into an EnrollmentSource.
func ParseEnrollmentSource(value string) (EnrollmentSource, error) {
	for _, candidate := range validEnrollmentSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid enrollment source %q", value)
}
