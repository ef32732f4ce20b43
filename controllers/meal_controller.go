package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/harrisonoakess/aluehealth-backend/services"
)

const maxImageBytes = 10 << 20

type MealController struct {
	capture *services.CaptureService
	meals   *services.MealService
}

func NewMealController(capture *services.CaptureService, meals *services.MealService) *MealController {
	return &MealController{capture: capture, meals: meals}
}

// StartCapture opens a capture session from an uploaded photo.
func (mc *MealController) StartCapture(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
		return
	}
	if len(data) > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	sess, err := mc.capture.StartCapture(c.GetString("accountID"), data, header.Filename, c.PostForm("note"))
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID, "state": sess.State})
}

func (mc *MealController) AttachNote(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var body struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := mc.capture.AttachNote(c.GetString("accountID"), sid, body.Note)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID, "state": sess.State})
}

func (mc *MealController) Analyze(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	result, err := mc.capture.Analyze(c.Request.Context(), c.GetString("accountID"), sid)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sid, "state": services.StateReviewing, "analysis": result})
}

func (mc *MealController) Confirm(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	mealID, err := mc.capture.Confirm(c.Request.Context(), c.GetString("accountID"), sid)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"meal_id": mealID})
}

func (mc *MealController) Cancel(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	if err := mc.capture.Cancel(c.GetString("accountID"), sid); err != nil {
		respondPipelineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (mc *MealController) ListMeals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	meals, err := mc.meals.ListMeals(c.Request.Context(), c.GetString("accountID"), limit)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

func (mc *MealController) GetMeal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}
	meal, err := mc.meals.GetMeal(c.Request.Context(), c.GetString("accountID"), id)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	sid, err := uuid.Parse(c.Param("sid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return sid, true
}

// respondPipelineError maps the pipeline failure taxonomy onto HTTP statuses,
// always surfacing a single human-readable message.
func respondPipelineError(c *gin.Context, err error) {
	var (
		analysisFailed *services.AnalysisFailedError
		unreachable    *services.AnalysisUnreachableError
		transition     *services.InvalidTransitionError
	)
	switch {
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrMealNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSessionBusy), errors.Is(err, services.ErrCancelTooLate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &analysisFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": analysisFailed.Message})
	case errors.As(err, &unreachable):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "analysis service unreachable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
