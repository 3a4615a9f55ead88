package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"gymflow/internal/apperr"
)

type Category string

const (
	CategoryYoga        Category = "yoga"
	CategoryPilates     Category = "pilates"
	CategoryCardio      Category = "cardio"
	CategoryStrength    Category = "strength"
	CategoryHIIT        Category = "hiit"
	CategorySpinning    Category = "spinning"
	CategoryDance       Category = "dance"
	CategoryMartialArts Category = "martial_arts"
	CategoryAquatics    Category = "aquatics"
	CategoryCustom      Category = "custom"
	CategoryOther       Category = "other"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyAllLevels    Difficulty = "all_levels"
)

type Class struct {
	ID               int        `db:"id" json:"id"`
	GymID            int        `db:"gym_id" json:"gym_id"`
	Name             string     `db:"name" json:"name"`
	Description      string     `db:"description" json:"description"`
	Duration         int        `db:"duration" json:"duration"`
	MaxCapacity      int        `db:"max_capacity" json:"max_capacity"`
	DifficultyLevel  Difficulty `db:"difficulty_level" json:"difficulty_level"`
	Category         Category   `db:"category" json:"category"`
	CustomCategoryID *int       `db:"custom_category_id" json:"custom_category_id,omitempty"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

type CreateClassRequest struct {
	Name             string     `json:"name" binding:"required,max=255"`
	Description      string     `json:"description" binding:"max=2000"`
	Duration         int        `json:"duration" binding:"required,min=5,max=600"`
	MaxCapacity      int        `json:"max_capacity" binding:"required,min=1,max=1000"`
	DifficultyLevel  Difficulty `json:"difficulty_level" binding:"omitempty,oneof=beginner intermediate advanced all_levels"`
	Category         Category   `json:"category" binding:"omitempty,oneof=yoga pilates cardio strength hiit spinning dance martial_arts aquatics custom other"`
	CustomCategoryID *int       `json:"custom_category_id" binding:"omitempty,min=1"`
}

// UpdateClassRequest changes only the fields that are set.
type UpdateClassRequest struct {
	Name             *string     `json:"name" binding:"omitempty,min=1,max=255"`
	Description      *string     `json:"description" binding:"omitempty,max=2000"`
	Duration         *int        `json:"duration" binding:"omitempty,min=5,max=600"`
	MaxCapacity      *int        `json:"max_capacity" binding:"omitempty,min=1,max=1000"`
	DifficultyLevel  *Difficulty `json:"difficulty_level" binding:"omitempty,oneof=beginner intermediate advanced all_levels"`
	Category         *Category   `json:"category" binding:"omitempty,oneof=yoga pilates cardio strength hiit spinning dance martial_arts aquatics custom other"`
	CustomCategoryID *int        `json:"custom_category_id" binding:"omitempty,min=1"`
	IsActive         *bool       `json:"is_active"`
}

type ListFilter struct {
	Category   Category `form:"category"`
	Search     string   `form:"search"`
	ActiveOnly bool     `form:"active_only"`
	Limit      int      `form:"limit"`
	Offset     int      `form:"offset"`
}

// DeleteResult tells whether the class was removed or only deactivated
// because sessions still reference it.
type DeleteResult struct {
	ID          int  `json:"id"`
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

func validateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return apperr.Wrap(apperr.KindValidation, apperr.CodeClassInvalid, "invalid class", err)
	}
	return nil
}

func (r CreateClassRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	return checkCategory(r.Category, r.CustomCategoryID)
}

func (r UpdateClassRequest) Validate() error {
	return validateStruct(r)
}

func checkCategory(category Category, customID *int) error {
	if category == CategoryCustom && customID == nil {
		return apperr.Validation(apperr.CodeClassInvalid, "custom category requires custom_category_id")
	}
	if category != CategoryCustom && customID != nil {
		return apperr.Validation(apperr.CodeClassInvalid, "custom_category_id is only allowed with the custom category")
	}
	return nil
}

func (r UpdateClassRequest) apply(c *Class) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Description != nil {
		c.Description = *r.Description
	}
	if r.Duration != nil {
		c.Duration = *r.Duration
	}
	if r.MaxCapacity != nil {
		c.MaxCapacity = *r.MaxCapacity
	}
	if r.DifficultyLevel != nil {
		c.DifficultyLevel = *r.DifficultyLevel
	}
	if r.Category != nil {
		c.Category = *r.Category
		if c.Category != CategoryCustom {
			c.CustomCategoryID = nil
		}
	}
	if r.CustomCategoryID != nil {
		c.CustomCategoryID = r.CustomCategoryID
	}
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
}
