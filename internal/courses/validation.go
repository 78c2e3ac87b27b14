package courses

import (
	"strings"

	"github.com/tyemirov/elearning/internal/authkit"
	"github.com/tyemirov/elearning/internal/store"
)

// Course validation messages.
const (
	MessageRequiredFields    = "Please provide all required fields"
	MessageTitleLength       = "Title must be at least 3 characters"
	MessageDescriptionLength = "Description must be at least 10 characters"
	MessageDurationMinimum   = "Duration must be at least 10 minute"
	MessagePriceMinimum      = "Price must be at least $0"
	MessageLevelUnknown      = "Level must be beginner, intermediate, or advanced"
)

const (
	minimumTitleLength       = 3
	minimumDescriptionLength = 10
	minimumDurationMinutes   = 10
)

// Course levels accepted by the validator. Matching is case-sensitive.
const (
	LevelBeginner     = "BEGINNER"
	LevelIntermediate = "INTERMEDIATE"
)

var allowedLevels = map[string]struct{}{
	LevelBeginner:     {},
	LevelIntermediate: {},
}

// CourseRequest is the JSON body of the create and update routes. Numeric
// fields are pointers so that an explicit zero price counts as present.
type CourseRequest struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Level       string   `json:"level"`
	Description string   `json:"description"`
	Instructor  string   `json:"instructor"`
	Duration    *int     `json:"duration"`
	Price       *float64 `json:"price"`
}

// ValidateCourseRequest returns at most one message: the first rule violated.
func ValidateCourseRequest(request CourseRequest) []string {
	return authkit.FirstViolation(
		authkit.Rule{
			Message: MessageRequiredFields,
			Violated: func() bool {
				return isBlank(request.Title, request.Category, request.Level, request.Description, request.Instructor) ||
					request.Duration == nil || request.Price == nil
			},
		},
		authkit.Rule{
			Message:  MessageTitleLength,
			Violated: func() bool { return len([]rune(request.Title)) < minimumTitleLength },
		},
		authkit.Rule{
			Message:  MessageDescriptionLength,
			Violated: func() bool { return len([]rune(request.Description)) < minimumDescriptionLength },
		},
		authkit.Rule{
			Message:  MessageDurationMinimum,
			Violated: func() bool { return *request.Duration < minimumDurationMinutes },
		},
		authkit.Rule{
			Message:  MessagePriceMinimum,
			Violated: func() bool { return *request.Price < 0 },
		},
		authkit.Rule{
			Message: MessageLevelUnknown,
			Violated: func() bool {
				_, known := allowedLevels[request.Level]
				return !known
			},
		},
	)
}

// mergeInto overlays the non-empty fields of request onto course. The result
// is returned as a request so the merged course can be re-validated.
func mergeInto(course store.Course, request CourseRequest) CourseRequest {
	merged := CourseRequest{
		Title:       firstNonBlank(request.Title, course.Title),
		Category:    firstNonBlank(request.Category, course.Category),
		Level:       firstNonBlank(request.Level, course.Level),
		Description: firstNonBlank(request.Description, course.Description),
		Instructor:  firstNonBlank(request.Instructor, course.Instructor),
		Duration:    request.Duration,
		Price:       request.Price,
	}
	if merged.Duration == nil {
		duration := course.Duration
		merged.Duration = &duration
	}
	if merged.Price == nil {
		price := course.Price
		merged.Price = &price
	}
	return merged
}

// trimmed strips surrounding whitespace from the free-text fields. Length
// rules run against the trimmed values.
func (request CourseRequest) trimmed() CourseRequest {
	request.Title = strings.TrimSpace(request.Title)
	request.Category = strings.TrimSpace(request.Category)
	request.Description = strings.TrimSpace(request.Description)
	request.Instructor = strings.TrimSpace(request.Instructor)
	return request
}

func (request CourseRequest) apply(course *store.Course) {
	course.Title = request.Title
	course.Category = request.Category
	course.Level = request.Level
	course.Description = request.Description
	course.Instructor = request.Instructor
	course.Duration = *request.Duration
	course.Price = *request.Price
}

func isBlank(values ...string) bool {
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			return true
		}
	}
	return false
}

func firstNonBlank(candidate string, fallback string) string {
	if strings.TrimSpace(candidate) == "" {
		return fallback
	}
	return candidate
}
