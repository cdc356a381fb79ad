package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CourseModule is one weighted unit of a course. Weight is a percentage of
// the course total; the weights of all modules in a course should sum to
// 100. Critical marks a module that must be passed individually for the
// learner to pass the course regardless of the weighted average.
type CourseModule struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Course       *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Title        string         `gorm:"not null" json:"title"`
	Position     int            `gorm:"not null;default:0" json:"position"`
	Weight       float64        `gorm:"not null;default:0" json:"weight"`
	Critical     bool           `gorm:"not null;default:false" json:"critical"`
	PassingScore int            `gorm:"not null;default:70" json:"passing_score"`
	Metadata     datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseModule) TableName() string { return "course_module" }
