package main

import (
	"log/slog"

	"bars-archive/internal/app"
)

// App holds application dependencies built by Wire.
type App struct {
	Config *app.Config
	Logger *slog.Logger
	Runner *app.Runner
}
