package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/harrisonoakess/aluehealth-backend/controllers"
	"github.com/harrisonoakess/aluehealth-backend/middlewares"
)

func SetupRouter(mc *controllers.MealController, rc *controllers.RealtimeController) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Capture flow: analysis works signed-out, identity rides along when
	// present. Confirm refuses an empty account inside the pipeline.
	capture := r.Group("/api/meals/capture")
	capture.Use(middlewares.OptionalAuthMiddleware())
	{
		capture.POST("", mc.StartCapture)
		capture.POST("/:sid/note", mc.AttachNote)
		capture.POST("/:sid/analyze", mc.Analyze)
		capture.POST("/:sid/confirm", mc.Confirm)
		capture.DELETE("/:sid", mc.Cancel)
	}

	meals := r.Group("/api/meals")
	meals.Use(middlewares.AuthMiddleware())
	{
		meals.GET("", mc.ListMeals)
		meals.GET("/:id", mc.GetMeal)
		meals.GET("/ws", rc.MealsWS)
	}

	return r
}
