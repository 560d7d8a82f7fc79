// Package main provides a terminal particle viewer.
//
// Usage:
//
//	go run ./cmd/particles-tui [flags]
//
// Flags:
//
//	--config <path>   Engine config file
//	--effect <name>   Effect to show (default: viewer.effect from the config)
//	--scale <cols>    Columns per world unit
//	--log <path>      Log file (the terminal is owned by the viewer)
//
// Controls:
//
//	Space      - Pause/resume
//	r          - Reset
//	a          - Toggle emission
//	n / b      - Next/previous effect
//	+ / -      - Zoom
//	Arrows     - Move the effect
//	q/Escape   - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/decker502/sparkfx/pkg/app"
	"github.com/decker502/sparkfx/pkg/config"
	"github.com/decker502/sparkfx/pkg/ecs"
	"github.com/decker502/sparkfx/pkg/logging"
	"github.com/decker502/sparkfx/pkg/render"
)

var (
	configFlag = flag.String("config", "sparkfx.yaml", "Engine config file")
	effectFlag = flag.String("effect", "", "Effect to show")
	scaleFlag  = flag.Float64("scale", 12, "Columns per world unit")
	logFlag    = flag.String("log", "", "Log file (default: discard)")
)

const frameTime = 33 * time.Millisecond

type viewer struct {
	rt     *app.Runtime
	screen tcell.Screen
	drawer *render.TerminalDrawer
	log    *zap.Logger

	names  []string
	index  int
	entity ecs.EntityID
	pos    mgl64.Vec3
	scale  float64
	paused bool
	status string
}

func main() {
	flag.Parse()

	cfg, err := config.LoadEngineConfig(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := zap.NewNop()
	if *logFlag != "" {
		if logger, err = logging.ToFile(cfg.Logging, *logFlag); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.EngineConfig, logger *zap.Logger) error {
	ctx := context.Background()
	rt, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	names, err := rt.Resources.Names(ctx)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	v := &viewer{
		rt:     rt,
		screen: screen,
		drawer: render.NewTerminalDrawer(screen),
		log:    logger.Named("tui"),
		names:  names,
		scale:  *scaleFlag,
	}
	start := *effectFlag
	if start == "" {
		start = cfg.Viewer.Effect
	}
	if err := v.load(ctx, start); err != nil {
		return err
	}
	return v.loop(ctx)
}

func (v *viewer) load(ctx context.Context, name string) error {
	v.rt.World.Clear()
	id, err := v.rt.World.Spawn(ctx, name, v.pos)
	if err != nil {
		return err
	}
	v.entity = id
	v.status = name
	for i, n := range v.names {
		if n == name {
			v.index = i
		}
	}
	v.log.Info("effect loaded", zap.String("effect", name))
	return nil
}

func (v *viewer) loop(ctx context.Context) error {
	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	last := time.Now()
	for {
		select {
		case ev := <-events:
			quit, err := v.handle(ctx, ev)
			if err != nil || quit {
				return err
			}
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if !v.paused {
				if err := v.rt.World.Update(ctx, dt); err != nil {
					return err
				}
			}
			v.draw()
		}
	}
}

func (v *viewer) handle(ctx context.Context, ev tcell.Event) (bool, error) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true, nil
		case tcell.KeyLeft:
			return false, v.move(-0.25, 0)
		case tcell.KeyRight:
			return false, v.move(0.25, 0)
		case tcell.KeyUp:
			return false, v.move(0, 0.25)
		case tcell.KeyDown:
			return false, v.move(0, -0.25)
		case tcell.KeyRune:
		default:
			return false, nil
		}

		inst, err := v.rt.World.Instance(v.entity)
		if err != nil {
			return false, err
		}
		switch ev.Rune() {
		case 'q':
			return true, nil
		case ' ':
			v.paused = !v.paused
		case 'r':
			return false, inst.Reset()
		case 'a':
			if inst.Emitting() {
				return false, inst.Deactivate()
			}
			return false, inst.Activate()
		case 'n', 'b':
			if len(v.names) == 0 {
				return false, nil
			}
			step := 1
			if ev.Rune() == 'b' {
				step = -1
			}
			next := v.names[((v.index+step)%len(v.names)+len(v.names))%len(v.names)]
			if err := v.load(ctx, next); err != nil {
				v.status = err.Error()
				v.log.Warn("load failed", zap.String("effect", next), zap.Error(err))
			}
		case '+', '=':
			v.scale = min(v.scale*1.25, 200)
		case '-':
			v.scale = max(v.scale*0.8, 1)
		}
	}
	return false, nil
}

func (v *viewer) move(dx, dy float64) error {
	v.pos = v.pos.Add(mgl64.Vec3{dx, dy, 0})
	return v.rt.World.SetPosition(v.entity, v.pos)
}

func (v *viewer) draw() {
	cam := v.drawer.Camera(v.scale)
	v.drawer.Begin()
	for _, es := range v.rt.World.Snapshots() {
		v.drawer.Draw(cam, es.Snapshot)
	}
	v.drawer.End()

	hud := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorYellow)
	if inst, err := v.rt.World.Instance(v.entity); err == nil {
		line := fmt.Sprintf(" %s  %s  particles %d/%d  t=%.1fs ",
			v.status, inst.State(), inst.Live(), inst.Descriptor().Capacity, inst.Elapsed())
		if v.paused {
			line += "[paused] "
		}
		v.drawer.DrawText(0, 0, line, hud)
	}
	_, h := v.screen.Size()
	v.drawer.DrawText(0, h-1, " space pause  r reset  a emit  n/b next/prev  +/- zoom  arrows move  q quit ", hud)
	v.screen.Show()
}
