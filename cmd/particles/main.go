// Package main provides the particle effect viewer.
//
// Usage:
//
//	go run ./cmd/particles [flags]
//
// Flags:
//
//	--config <path>     Engine config file (default sparkfx.yaml, missing file = defaults)
//	--effect <name>     Start with a specific effect (e.g., --effect=fountain)
//	--file <path>       Preview a descriptor file instead of a named effect
//	--scale <px>        Pixels per world unit, overrides config and saved settings
//	--additive          Draw particles with additive blending
//
// Controls:
//
//	Space             - Pause/resume
//	R                 - Reset the effect
//	A                 - Toggle emission
//	V                 - Toggle host visibility
//	N / B             - Next/previous effect
//	+ / -             - Zoom in/out
//	H                 - Toggle statistics
//	Mouse drag        - Move the effect
//	F11               - Toggle fullscreen
//	Q/Escape          - Quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/decker502/sparkfx/pkg/app"
	"github.com/decker502/sparkfx/pkg/config"
	"github.com/decker502/sparkfx/pkg/logging"
)

var (
	configFlag   = flag.String("config", "sparkfx.yaml", "Engine config file")
	effectFlag   = flag.String("effect", "", "Start with specific effect name")
	fileFlag     = flag.String("file", "", "Preview a descriptor file")
	scaleFlag    = flag.Float64("scale", 0, "Pixels per world unit (0 = config value)")
	additiveFlag = flag.Bool("additive", false, "Use additive blending")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadEngineConfig(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.MustNew(cfg.Logging)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("particle viewer failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("particle viewer closed")
}

func run(cfg *config.EngineConfig, logger *zap.Logger) error {
	ctx := context.Background()

	rt, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}

	effectName := *effectFlag
	if *fileFlag != "" {
		d, err := rt.Resources.LoadFile(*fileFlag)
		if err != nil {
			rt.Close()
			return err
		}
		effectName = d.Name
	}

	viewer, err := app.NewApp(ctx, rt, app.Config{
		Effect:        effectName,
		PixelsPerUnit: *scaleFlag,
		Additive:      *additiveFlag,
	}, logger)
	if err != nil {
		rt.Close()
		return err
	}

	ebiten.SetWindowSize(cfg.Viewer.Width, cfg.Viewer.Height)
	ebiten.SetWindowTitle("sparkfx particle viewer")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	runErr := ebiten.RunGame(viewer)
	if errors.Is(runErr, app.ErrQuit) {
		runErr = nil
	}
	if err := viewer.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	return runErr
}
