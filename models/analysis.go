package models

import (
	"time"

	"github.com/google/uuid"
)

// Wire types for the /analyze-meal endpoint. An AnalysisResult is transient:
// it lives in a capture session until the user confirms or cancels, and is
// never stored verbatim.

type MealMacros struct {
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

type AnalysisItem struct {
	Name       string      `json:"name"`
	Quantity   float64     `json:"quantity"`
	Unit       string      `json:"unit"`
	Calories   *float64    `json:"calories"`
	Macros     *MealMacros `json:"macros"`
	Confidence float64     `json:"confidence"`
}

type AnalysisResult struct {
	MealID        string         `json:"meal_id"`
	TimestampISO  string         `json:"timestamp_iso"`
	Items         []AnalysisItem `json:"items"`
	CaloriesTotal float64        `json:"calories_total"`
	Suggestion    string         `json:"suggestion"`
	Assumptions   []string       `json:"assumptions"`
	SourceImageID string         `json:"source_image_id"`
	ModelVersion  string         `json:"model_version"`
}

// MacroTotals is what the meals list shows under each card.
type MacroTotals struct {
	Calories int     `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// LoggedMeal is a persisted meal reshaped back into the analysis form, so the
// client renders fresh and stored meals the same way.
type LoggedMeal struct {
	ID         uuid.UUID      `json:"id"`
	CapturedAt time.Time      `json:"captured_at"`
	ImageURL   *string        `json:"image_url"`
	Analysis   AnalysisResult `json:"analysis"`
	Totals     MacroTotals    `json:"totals"`
}
