// services/meal_service.go
package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/harrisonoakess/aluehealth-backend/models"
)

const (
	SignedURLTTL = time.Hour

	defaultListLimit = 20
	maxListLimit     = 30
)

// MealStore is the persistence slice the capture pipeline needs.
type MealStore interface {
	SaveAnalyzedMeal(ctx context.Context, accountID string, res *models.AnalysisResult, imagePath, imageMime string) (uuid.UUID, error)
}

type MealService struct {
	db    *gorm.DB
	store ObjectStore
}

func NewMealService(db *gorm.DB, store ObjectStore) *MealService {
	return &MealService{db: db, store: store}
}

// SaveAnalyzedMeal writes the meal header and its item rows in one
// transaction: a meal and its items appear together or not at all.
func (s *MealService) SaveAnalyzedMeal(ctx context.Context, accountID string, res *models.AnalysisResult, imagePath, imageMime string) (uuid.UUID, error) {
	meal := models.Meal{
		ID:            uuid.New(),
		AccountID:     accountID,
		OccurredAt:    parseOccurredAt(res.TimestampISO),
		CaloriesTotal: int(math.Round(res.CaloriesTotal)),
		Note:          res.Suggestion,
		ImagePath:     imagePath,
		ImageMime:     imageMime,
	}
	items := buildMealItems(meal.ID, res.Items)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&meal).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, &PersistenceFailedError{Err: err}
	}
	return meal.ID, nil
}

// ListMeals returns the account's meals newest first, each reshaped into the
// analysis form with a signed image URL. Signed URL issuance is fanned out
// per row; a row whose URL can't be signed still comes back, just without an
// image.
func (s *MealService) ListMeals(ctx context.Context, accountID string, limit int) ([]models.LoggedMeal, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var meals []models.Meal
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("account_id = ?", accountID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&meals).Error
	if err != nil {
		return nil, &RetrievalFailedError{Err: err}
	}

	urls := s.signImageURLs(ctx, meals)

	out := make([]models.LoggedMeal, 0, len(meals))
	for i, m := range meals {
		out = append(out, toLoggedMeal(m, urls[i]))
	}
	return out, nil
}

func (s *MealService) GetMeal(ctx context.Context, accountID string, mealID uuid.UUID) (*models.LoggedMeal, error) {
	var meal models.Meal
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND account_id = ?", mealID, accountID).
		First(&meal).Error
	if err != nil {
		return nil, retrievalError(err)
	}

	urls := s.signImageURLs(ctx, []models.Meal{meal})
	logged := toLoggedMeal(meal, urls[0])
	return &logged, nil
}

// signImageURLs requests one signed URL per meal with an image path. Page
// size is already bounded, so one goroutine per row is fine. Failures are
// logged and leave a nil entry.
func (s *MealService) signImageURLs(ctx context.Context, meals []models.Meal) []*string {
	urls := make([]*string, len(meals))
	var wg sync.WaitGroup
	for i, m := range meals {
		if m.ImagePath == "" {
			continue
		}
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			u, err := s.store.SignedImageURL(ctx, path, SignedURLTTL)
			if err != nil {
				log.WithError(err).WithField("path", path).Warn("signed URL issuance failed")
				return
			}
			urls[i] = &u
		}(i, m.ImagePath)
	}
	wg.Wait()
	return urls
}

// buildMealItems applies the persistence defaults: quantity 1 when missing,
// unit "unit", calories rounded to the nearest integer, macros untouched.
func buildMealItems(mealID uuid.UUID, items []models.AnalysisItem) []models.MealItem {
	out := make([]models.MealItem, 0, len(items))
	for _, it := range items {
		row := models.MealItem{
			MealID:     mealID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Unit:       it.Unit,
			Confidence: it.Confidence,
		}
		if row.Quantity <= 0 {
			row.Quantity = 1
		}
		if row.Unit == "" {
			row.Unit = "unit"
		}
		if it.Calories != nil {
			cal := int(math.Round(*it.Calories))
			row.Calories = &cal
		}
		if it.Macros != nil {
			p, c, f := it.Macros.ProteinG, it.Macros.CarbsG, it.Macros.FatG
			row.ProteinG = &p
			row.CarbsG = &c
			row.FatG = &f
		}
		out = append(out, row)
	}
	return out
}

// toLoggedMeal reshapes a stored row back into the analysis form so the
// client renders stored and fresh meals identically.
func toLoggedMeal(m models.Meal, imageURL *string) models.LoggedMeal {
	items := make([]models.AnalysisItem, 0, len(m.Items))
	for _, it := range m.Items {
		ai := models.AnalysisItem{
			Name:       it.Name,
			Quantity:   it.Quantity,
			Unit:       it.Unit,
			Confidence: it.Confidence,
		}
		if it.Calories != nil {
			cal := float64(*it.Calories)
			ai.Calories = &cal
		}
		if it.ProteinG != nil || it.CarbsG != nil || it.FatG != nil {
			ai.Macros = &models.MealMacros{}
			if it.ProteinG != nil {
				ai.Macros.ProteinG = *it.ProteinG
			}
			if it.CarbsG != nil {
				ai.Macros.CarbsG = *it.CarbsG
			}
			if it.FatG != nil {
				ai.Macros.FatG = *it.FatG
			}
		}
		items = append(items, ai)
	}

	analysis := models.AnalysisResult{
		MealID:        m.ID.String(),
		TimestampISO:  m.OccurredAt.UTC().Format(time.RFC3339),
		Items:         items,
		CaloriesTotal: float64(m.CaloriesTotal),
		Suggestion:    m.Note,
		Assumptions:   []string{},
		SourceImageID: m.ImagePath,
	}

	return models.LoggedMeal{
		ID:         m.ID,
		CapturedAt: m.OccurredAt,
		ImageURL:   imageURL,
		Analysis:   analysis,
		Totals:     AggregateMacros(items),
	}
}

// AggregateMacros sums calories and macro grams over a list of items.
func AggregateMacros(items []models.AnalysisItem) models.MacroTotals {
	var t models.MacroTotals
	for _, it := range items {
		if it.Calories != nil {
			t.Calories += int(math.Round(*it.Calories))
		}
		if it.Macros != nil {
			t.ProteinG += it.Macros.ProteinG
			t.CarbsG += it.Macros.CarbsG
			t.FatG += it.Macros.FatG
		}
	}
	return t
}

// retrievalError keeps "no such meal" out of the failure taxonomy: an unknown
// id is the caller's problem, not a broken listing query.
func retrievalError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrMealNotFound
	}
	return &RetrievalFailedError{Err: err}
}

func parseOccurredAt(iso string) time.Time {
	if iso != "" {
		if ts, err := time.Parse(time.RFC3339, iso); err == nil {
			return ts
		}
	}
	return time.Now().UTC()
}
