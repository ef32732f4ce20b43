package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/harrisonoakess/aluehealth-backend/config"
	"github.com/harrisonoakess/aluehealth-backend/controllers"
	"github.com/harrisonoakess/aluehealth-backend/routes"
	"github.com/harrisonoakess/aluehealth-backend/services"
)

func main() {
	settings := config.Load()
	db := config.InitDB()
	ctx := context.Background()

	store, err := services.NewStorageService(ctx, settings.S3Bucket, settings.S3Region)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	var vision services.FoodChecker
	if settings.VisionPrecheck {
		v, err := services.NewVisionService(ctx)
		if err != nil {
			log.Fatalf("vision init failed: %v", err)
		}
		vision = v
	}

	hub := services.NewRealtimeHub()
	analyzer := services.NewAnalysisService(settings.AnalysisBaseURL)
	mealSvc := services.NewMealService(db, store)
	captureSvc := services.NewCaptureService(analyzer, vision, mealSvc, store, hub)

	mc := controllers.NewMealController(captureSvc, mealSvc)
	rc := controllers.NewRealtimeController(hub)

	r := routes.SetupRouter(mc, rc)
	if err := r.Run(":" + settings.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
