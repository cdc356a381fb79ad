package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusWithdrawn = "withdrawn"
)

// Enrollment links a learner to a course. Learner identity is owned by the
// external learner directory, so LearnerID carries no foreign key here.
type Enrollment struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_enrollment_learner_course,unique" json:"learner_id"`
	CourseID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_enrollment_learner_course,unique" json:"course_id"`
	Course     *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Status     string         `gorm:"not null;default:'active'" json:"status"`
	EnrolledAt time.Time      `gorm:"not null;default:now()" json:"enrolled_at"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Enrollment) TableName() string { return "enrollment" }
