package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/harrisonoakess/aluehealth-backend/models"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestBuildMealItemsDefaults(t *testing.T) {
	mealID := uuid.New()
	items := buildMealItems(mealID, []models.AnalysisItem{
		{Name: "apple", Quantity: 0, Unit: "", Calories: fptr(94.6), Confidence: 0.9},
		{Name: "mystery", Quantity: 2, Unit: "cup"},
	})
	require.Len(t, items, 2)

	assert.Equal(t, mealID, items[0].MealID)
	assert.Equal(t, 1.0, items[0].Quantity, "missing quantity defaults to 1")
	assert.Equal(t, "unit", items[0].Unit, "missing unit defaults to sentinel")
	require.NotNil(t, items[0].Calories)
	assert.Equal(t, 95, *items[0].Calories, "calories round to nearest integer")
	assert.Nil(t, items[0].ProteinG)

	assert.Equal(t, 2.0, items[1].Quantity)
	assert.Equal(t, "cup", items[1].Unit)
	assert.Nil(t, items[1].Calories, "unknown calories stay null")
}

func TestBuildMealItemsMacrosUnrounded(t *testing.T) {
	items := buildMealItems(uuid.New(), []models.AnalysisItem{
		{Name: "rice", Quantity: 1, Unit: "bowl", Calories: fptr(210),
			Macros: &models.MealMacros{ProteinG: 4.37, CarbsG: 44.91, FatG: 0.44}},
	})
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ProteinG)
	assert.Equal(t, 4.37, *items[0].ProteinG)
	assert.Equal(t, 44.91, *items[0].CarbsG)
	assert.Equal(t, 0.44, *items[0].FatG)
}

func TestAggregateMacros(t *testing.T) {
	items := []models.AnalysisItem{
		{Name: "apple", Calories: fptr(95), Macros: &models.MealMacros{ProteinG: 0.5, CarbsG: 25, FatG: 0.3}},
		{Name: "toast", Calories: fptr(150), Macros: &models.MealMacros{ProteinG: 5, CarbsG: 28, FatG: 2}},
		{Name: "water", Calories: nil, Macros: nil},
	}
	totals := AggregateMacros(items)
	assert.Equal(t, 245, totals.Calories)
	assert.InDelta(t, 5.5, totals.ProteinG, 1e-9)
	assert.InDelta(t, 53.0, totals.CarbsG, 1e-9)
	assert.InDelta(t, 2.3, totals.FatG, 1e-9)
}

func TestAggregateMacrosEmpty(t *testing.T) {
	assert.Equal(t, models.MacroTotals{}, AggregateMacros(nil))
}

func TestParseOccurredAt(t *testing.T) {
	ts := parseOccurredAt("2025-03-14T12:30:00Z")
	assert.Equal(t, time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC), ts)

	before := time.Now().UTC()
	fallback := parseOccurredAt("no good")
	assert.False(t, fallback.Before(before.Add(-time.Second)))

	fallback = parseOccurredAt("")
	assert.False(t, fallback.IsZero())
}

func TestRetrievalErrorTranslatesRecordNotFound(t *testing.T) {
	assert.ErrorIs(t, retrievalError(gorm.ErrRecordNotFound), ErrMealNotFound)

	var failed *RetrievalFailedError
	err := retrievalError(errors.New("connection reset"))
	require.ErrorAs(t, err, &failed)
	assert.NotErrorIs(t, err, ErrMealNotFound)
}

// Round-trip law: a stored meal reshaped for display carries the same item
// count, calories and macro sums that were confirmed.
func TestToLoggedMealRoundTrip(t *testing.T) {
	mealID := uuid.New()
	occurred := time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)
	stored := models.Meal{
		ID:            mealID,
		AccountID:     "acct-1",
		OccurredAt:    occurred,
		CaloriesTotal: 245,
		Note:          "Add some protein next time.",
		ImagePath:     "acct-1/prov-123.jpg",
		ImageMime:     "image/jpeg",
		Items: []models.MealItem{
			{Name: "apple", Quantity: 1, Unit: "piece", Calories: iptr(95),
				ProteinG: fptr(0.5), CarbsG: fptr(25), FatG: fptr(0.3), Confidence: 0.92},
			{Name: "toast", Quantity: 2, Unit: "slice", Calories: iptr(150),
				ProteinG: fptr(5), CarbsG: fptr(28), FatG: fptr(2), Confidence: 0.81},
		},
	}

	url := "https://bucket.example/signed"
	logged := toLoggedMeal(stored, &url)

	assert.Equal(t, mealID, logged.ID)
	require.NotNil(t, logged.ImageURL)
	assert.Equal(t, url, *logged.ImageURL)

	a := logged.Analysis
	assert.Equal(t, mealID.String(), a.MealID)
	assert.Equal(t, "2025-03-14T12:30:00Z", a.TimestampISO)
	assert.Len(t, a.Items, 2)
	assert.Equal(t, 245.0, a.CaloriesTotal)
	assert.Equal(t, "Add some protein next time.", a.Suggestion)
	assert.Equal(t, "acct-1/prov-123.jpg", a.SourceImageID)
	assert.NotNil(t, a.Assumptions, "assumptions serializes as [], not null")

	assert.Equal(t, 245, logged.Totals.Calories)
	assert.InDelta(t, 5.5, logged.Totals.ProteinG, 1e-9)
}

func TestToLoggedMealWithoutImage(t *testing.T) {
	logged := toLoggedMeal(models.Meal{ID: uuid.New(), OccurredAt: time.Now()}, nil)
	assert.Nil(t, logged.ImageURL, "missing signed URL degrades to null image")
	assert.Empty(t, logged.Analysis.Items)
}
