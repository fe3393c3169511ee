package main

import (
	"os"

	"lunara/internal/config"
	"lunara/internal/database"
	"lunara/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.New(cfg.LogLevel, cfg.LogFormat)

	a := &app{
		cfg: cfg,
		open: func() (*database.DB, error) {
			return database.InitializeWithConfig(cfg)
		},
	}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
