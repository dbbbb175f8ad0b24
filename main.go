package main

import (
	"context"
	"os"
	"time"

	"github.com/snapfeed/snapfeed/config"
	"github.com/snapfeed/snapfeed/media"
	"github.com/snapfeed/snapfeed/models"
	"github.com/snapfeed/snapfeed/routes"
	"github.com/snapfeed/snapfeed/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{}, &models.PageView{})

	utils.UseRedisCaptchaStore()

	store, err := media.NewStore(context.Background(), cfg)
	if err != nil {
		utils.Sugar.Fatalf("media store init failed: %v", err)
	}

	r := routes.SetupRouter(db, store)

	// Best-effort removal of upload scratch files orphaned by crashes.
	utils.StartScratchSweeper(os.TempDir(), 5*time.Minute, time.Hour)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
