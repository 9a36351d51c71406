package enums

import "fmt"

// ResourceType classifies the learning resource an entitlement grants access to.
type ResourceType string

const (
	ResourceTypeLesson      ResourceType = "lesson"
	ResourceTypeLab         ResourceType = "lab"
	ResourceTypeQuiz        ResourceType = "quiz"
	ResourceTypeAssignment  ResourceType = "assignment"
	ResourceTypeDownload    ResourceType = "download"
	ResourceTypeVideo       ResourceType = "video"
	ResourceTypeDocument    ResourceType = "document"
	ResourceTypeForum       ResourceType = "forum"
	ResourceTypeCertificate ResourceType = "certificate"
)

var validResourceTypes = []ResourceType{
	ResourceTypeLesson,
	ResourceTypeLab,
	ResourceTypeQuiz,
	ResourceTypeAssignment,
	ResourceTypeDownload,
	ResourceTypeVideo,
	ResourceTypeDocument,
	ResourceTypeForum,
	ResourceTypeCertificate,
}

// String implements fmt.Stringer.
func (r ResourceType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ResourceType.
func (r ResourceType) IsValid() bool {
	for _, candidate := range validResourceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseResourceType converts raw input into a ResourceType.
func ParseResourceType(value string) (ResourceType, error) {
	for _, candidate := range validResourceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resource type %q", value)
}
