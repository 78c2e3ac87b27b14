package store

import "time"

// Role names stored on user records.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// IsKnownRole reports whether role is one of the stored role names.
func IsKnownRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User is the persisted account record. The password digest and the pending
// reset token never leave the server; handlers project users through a view.
type User struct {
	ID             string `gorm:"column:id;primaryKey;size:36"`
	Name           string `gorm:"column:name;not null"`
	Email          string `gorm:"column:email;uniqueIndex;size:320;not null"`
	PasswordHash   string `gorm:"column:password;not null"`
	Role           string `gorm:"column:role;size:16;not null;default:USER"`
	ProfilePicture string `gorm:"column:profile_picture;not null;default:''"`
	ResetToken     string `gorm:"column:reset_token;not null;default:''"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (User) TableName() string {
	return "users"
}

// Course is a catalogue entry created by an administrator.
type Course struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Category    string    `gorm:"column:category;index;not null" json:"category"`
	Level       string    `gorm:"column:level;index;not null" json:"level"`
	Description string    `gorm:"column:description;not null" json:"description"`
	Instructor  string    `gorm:"column:instructor;not null" json:"instructor"`
	Duration    int       `gorm:"column:duration;not null" json:"duration"`
	Price       float64   `gorm:"column:price;not null" json:"price"`
	CreatedByID string    `gorm:"column:created_by_id;index;size:36" json:"createdById"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Course) TableName() string {
	return "courses"
}

// Enrollment links a user to a course. A user enrolls in a course at most once.
type Enrollment struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"column:user_id;size:36;not null;uniqueIndex:idx_enrollment_user_course" json:"userId"`
	CourseID  string    `gorm:"column:course_id;size:36;not null;uniqueIndex:idx_enrollment_user_course;index" json:"courseId"`
	Course    *Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// CourseFilter narrows course listings. Empty fields do not filter.
type CourseFilter struct {
	Title    string
	Category string
	Level    string
	Offset   int
	Limit    int
}
