package models

import (
	"time"

	"github.com/google/uuid"
)

// One Meal per confirmed capture. Immutable once written: there is no
// update/delete path, items only go away if the meal row does.
type Meal struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	AccountID     string     `gorm:"type:varchar(255);index;not null" json:"account_id"`
	OccurredAt    time.Time  `gorm:"index" json:"occurred_at"`
	CaloriesTotal int        `json:"calories_total"`
	Note          string     `json:"note"`
	ImagePath     string     `json:"image_path"`
	ImageMime     string     `json:"image_mime"`
	Items         []MealItem `gorm:"foreignKey:MealID" json:"items"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Each MealItem stores the nutrition snapshot for one detected food.
// Calories and macros are nullable: the analyzer may not commit to a number.
type MealItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MealID     uuid.UUID `gorm:"type:uuid;index;not null" json:"meal_id"`
	Name       string    `gorm:"not null" json:"name"`
	Quantity   float64   `json:"quantity"`
	Unit       string    `json:"unit"`
	Calories   *int      `json:"calories"`
	ProteinG   *float64  `json:"protein_g"`
	CarbsG     *float64  `json:"carbs_g"`
	FatG       *float64  `json:"fat_g"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}
