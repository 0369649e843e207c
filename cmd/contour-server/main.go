// Package main is the entry point for the contour tile server.
package main

import (
	"os"

	"github.com/spf13/viper"

	"github.com/acalcutt/contour-mvt-server/cmd/contour-server/app"
	"github.com/acalcutt/contour-mvt-server/internal/logger"
)

func main() {
	viper.AutomaticEnv()
	logger.Initialize(viper.GetBool("debug"))
	defer logger.Sync()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
