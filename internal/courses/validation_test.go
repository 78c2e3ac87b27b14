package courses

import (
	"testing"

	"github.com/tyemirov/elearning/internal/store"
)

func intPointer(value int) *int {
	return &value
}

func floatPointer(value float64) *float64 {
	return &value
}

func validCourseRequest() CourseRequest {
	return CourseRequest{
		Title:       "Go Basics",
		Category:    "programming",
		Level:       LevelBeginner,
		Description: "Learn the language from scratch",
		Instructor:  "Ada",
		Duration:    intPointer(120),
		Price:       floatPointer(49.5),
	}
}

func TestValidateCourseRequestFirstMatch(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		mutate   func(*CourseRequest)
		expected string
	}{
		{name: "missing title", mutate: func(request *CourseRequest) { request.Title = "" }, expected: MessageRequiredFields},
		{name: "missing price", mutate: func(request *CourseRequest) { request.Price = nil }, expected: MessageRequiredFields},
		{name: "missing duration", mutate: func(request *CourseRequest) { request.Duration = nil }, expected: MessageRequiredFields},
		{name: "short title", mutate: func(request *CourseRequest) { request.Title = "Go" }, expected: MessageTitleLength},
		{name: "short title beats short description", mutate: func(request *CourseRequest) {
			request.Title = "Go"
			request.Description = "short"
		}, expected: MessageTitleLength},
		{name: "short description", mutate: func(request *CourseRequest) { request.Description = "too short" }, expected: MessageDescriptionLength},
		{name: "short duration", mutate: func(request *CourseRequest) { request.Duration = intPointer(9) }, expected: MessageDurationMinimum},
		{name: "negative price", mutate: func(request *CourseRequest) { request.Price = floatPointer(-1) }, expected: MessagePriceMinimum},
		{name: "negative price with bad level", mutate: func(request *CourseRequest) {
			request.Price = floatPointer(-1)
			request.Level = "Expert"
		}, expected: MessagePriceMinimum},
		{name: "expert level", mutate: func(request *CourseRequest) { request.Level = "Expert" }, expected: MessageLevelUnknown},
		{name: "lowercase level", mutate: func(request *CourseRequest) { request.Level = "beginner" }, expected: MessageLevelUnknown},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := validCourseRequest()
			testCase.mutate(&request)
			violations := ValidateCourseRequest(request)
			if len(violations) != 1 || violations[0] != testCase.expected {
				t.Fatalf("expected [%q], got %v", testCase.expected, violations)
			}
		})
	}
}

func TestValidateCourseRequestAcceptsFreeCourse(t *testing.T) {
	t.Parallel()

	request := validCourseRequest()
	request.Price = floatPointer(0)
	request.Level = LevelIntermediate
	if violations := ValidateCourseRequest(request); violations != nil {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestMergeIntoKeepsCurrentValuesForEmptyFields(t *testing.T) {
	t.Parallel()

	current := store.Course{
		Title:       "Go Basics",
		Category:    "programming",
		Level:       LevelBeginner,
		Description: "Learn the language from scratch",
		Instructor:  "Ada",
		Duration:    120,
		Price:       10,
	}
	merged := mergeInto(current, CourseRequest{Title: "Go Advanced", Price: floatPointer(0)})
	if merged.Title != "Go Advanced" || merged.Category != "programming" || merged.Instructor != "Ada" {
		t.Fatalf("unexpected merged strings: %+v", merged)
	}
	if *merged.Duration != 120 || *merged.Price != 0 {
		t.Fatalf("unexpected merged numbers: duration=%d price=%v", *merged.Duration, *merged.Price)
	}

	merged.apply(&current)
	if current.Title != "Go Advanced" || current.Price != 0 || current.Duration != 120 {
		t.Fatalf("unexpected applied course: %+v", current)
	}
}
