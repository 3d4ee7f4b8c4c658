package main

import (
	"net/http"

	"fibre-tracker/internal/config"
	"fibre-tracker/internal/handler"
	"fibre-tracker/internal/logging"
	"fibre-tracker/internal/repository"
	"fibre-tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	config, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	logging.Setup(config.LogLevel, "json")

	// Initialize layers
	registry := repository.NewRegistryStore(config.ResultsDir)
	results := repository.NewResultStore(config.ResultsDir)

	statusService := service.NewStatusService(registry, results)

	progressHandler := handler.NewProgressHandler(statusService)
	suburbHandler := handler.NewSuburbHandler(statusService)

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	r.GET("/progress", progressHandler.Progress)
	r.GET("/suburbs/:state", suburbHandler.Suburbs)
	r.GET("/suburbs/:state/:suburb", suburbHandler.Result)

	log.Info().Str("address", config.ServerAddress).Msg("starting server")
	if err := r.Run(config.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
