package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/decker502/sparkfx/pkg/descriptor"
	"github.com/decker502/sparkfx/pkg/effect"
	"github.com/decker502/sparkfx/pkg/game"
	"github.com/decker502/sparkfx/pkg/library"
)

func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("effectctl "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func (e *env) openStore(ctx context.Context) (library.Store, error) {
	return library.Open(ctx, e.cfg.Library, e.log)
}

func runValidate(_ context.Context, e *env, args []string) error {
	fs := e.flags("validate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(e.stderr, "usage: effectctl validate FILE...")
		return errUsage
	}

	failed := 0
	for _, path := range fs.Args() {
		d, err := descriptor.LoadFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(e.stdout, "FAIL  %s\n      %v\n", path, err)
			continue
		}
		fmt.Fprintf(e.stdout, "ok    %s (%s, capacity %d)\n", path, d.Name, d.Capacity)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files invalid", failed, fs.NArg())
	}
	return nil
}

func runImport(ctx context.Context, e *env, args []string) error {
	fs := e.flags("import")
	name := fs.String("name", "", "effect name (single file only; default: the descriptor's name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 || (*name != "" && fs.NArg() > 1) {
		fmt.Fprintln(e.stderr, "usage: effectctl import [-name N] FILE...")
		return errUsage
	}

	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range fs.Args() {
		entry, err := readEntry(path, *name)
		if err != nil {
			return err
		}
		res, err := store.Save(ctx, entry)
		if err != nil {
			return fmt.Errorf("save %s: %w", entry.Name, err)
		}
		fmt.Fprintf(e.stdout, "%-9s %s (%s)\n", res, entry.Name, path)
	}
	return nil
}

// readEntry loads a file, validates it and wraps its raw source in an entry.
func readEntry(path, name string) (library.Entry, error) {
	format, err := descriptor.FormatOf(path)
	if err != nil {
		return library.Entry{}, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return library.Entry{}, err
	}
	if name == "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		d, err := descriptor.LoadNamed(path, base, src, format)
		if err != nil {
			return library.Entry{}, err
		}
		name = d.Name
	}
	entry, err := library.NewEntry(name, format, src)
	if err != nil {
		return library.Entry{}, err
	}
	if _, err := entry.Decode(); err != nil {
		return library.Entry{}, err
	}
	return entry, nil
}

func runExport(ctx context.Context, e *env, args []string) error {
	fs := e.flags("export")
	formatName := fs.String("format", "", "output format: yaml, json or toml (default: stored source)")
	out := fs.String("o", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(e.stderr, "usage: effectctl export [-format F] [-o OUT] NAME")
		return errUsage
	}
	name := fs.Arg(0)

	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var format descriptor.Format
	if *formatName != "" {
		if format, err = descriptor.ParseFormat(*formatName); err != nil {
			return err
		}
	} else if *out != "" {
		if f, err := descriptor.FormatOf(*out); err == nil {
			format = f
		}
	}

	data, err := exportSource(ctx, store, game.NewResourceManager(e.cfg.Assets, nil, e.log), name, format)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = e.stdout.Write(data)
		return err
	}
	return writeFileAtomic(*out, data)
}

// exportSource returns the stored source unchanged when no other format is
// asked for; otherwise the descriptor is re-encoded. Names missing from the
// library are looked up in the asset directories and presets.
func exportSource(ctx context.Context, store library.Store, rm *game.ResourceManager, name string, format descriptor.Format) ([]byte, error) {
	entry, err := store.Load(ctx, name)
	switch {
	case err == nil:
		if format == "" || format == entry.Format {
			return entry.Source, nil
		}
		d, err := entry.Decode()
		if err != nil {
			return nil, err
		}
		return descriptor.Marshal(d, format)
	case !errors.Is(err, library.ErrNotFound):
		return nil, err
	}

	d, err := rm.LoadDescriptor(ctx, name)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = descriptor.FormatYAML
	}
	return descriptor.Marshal(d, format)
}

func runList(ctx context.Context, e *env, args []string) error {
	fs := e.flags("list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFORMAT\tFINGERPRINT\tUPDATED")
	for _, en := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", en.Name, en.Format, shortFingerprint(en.Fingerprint), en.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func runNames(ctx context.Context, e *env, args []string) error {
	fs := e.flags("names")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	names, err := game.NewResourceManager(e.cfg.Assets, store, e.log).Names(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(e.stdout, n)
	}
	return nil
}

func runDelete(ctx context.Context, e *env, args []string) error {
	fs := e.flags("delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(e.stderr, "usage: effectctl delete NAME...")
		return errUsage
	}
	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, name := range fs.Args() {
		if err := store.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
		fmt.Fprintf(e.stdout, "deleted %s\n", name)
	}
	return nil
}

func runSchema(_ context.Context, e *env, args []string) error {
	fs := e.flags("schema")
	out := fs.String("o", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := json.MarshalIndent(descriptor.Schema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	data = append(data, '\n')
	if *out == "" {
		_, err = e.stdout.Write(data)
		return err
	}
	return writeFileAtomic(*out, data)
}

// writeFileAtomic writes through a temporary file so readers never see a
// partial file.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func runSimulate(ctx context.Context, e *env, args []string) error {
	fs := e.flags("simulate")
	seconds := fs.Float64("seconds", 5, "simulated time")
	dt := fs.Float64("dt", 1.0/60, "time step")
	every := fs.Float64("every", 0.5, "report interval in simulated seconds (0 = every step)")
	seed := fs.Uint64("seed", 1, "random seed")
	hidden := fs.Bool("hidden", false, "simulate with the host not visible")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *dt <= 0 || *seconds < 0 {
		fmt.Fprintln(e.stderr, "usage: effectctl simulate [-seconds S] [-dt D] [-seed N] NAME|FILE")
		return errUsage
	}

	d, err := e.loadForSimulation(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	inst, err := effect.New(d, effect.WithSeed(*seed), effect.WithLogger(e.log))
	if err != nil {
		return err
	}
	defer inst.Dispose()

	sum, err := simulate(inst, *seconds, *dt, *every, !*hidden, e.stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "\n%s: %d steps, %d spawned, %d reclaimed, %d dropped, peak %d/%d live, done=%v\n",
		d.Name, sum.steps, sum.spawned, sum.reclaimed, sum.dropped, sum.peak, d.Capacity, inst.Done())
	e.log.Debug("simulation finished", zap.String("effect", d.Name), zap.Int("steps", sum.steps))
	return nil
}

func (e *env) loadForSimulation(ctx context.Context, arg string) (*descriptor.Descriptor, error) {
	if _, err := descriptor.FormatOf(arg); err == nil {
		if _, statErr := os.Stat(arg); statErr == nil {
			return descriptor.LoadFile(arg)
		}
	}
	store, err := e.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return game.NewResourceManager(e.cfg.Assets, store, e.log).LoadDescriptor(ctx, arg)
}

type simSummary struct {
	steps     int
	spawned   int
	reclaimed int
	dropped   int
	peak      int
}

// simulate steps inst for the given time and prints a row every report
// interval. Per-interval counts are summed over the steps in that interval.
func simulate(inst *effect.Instance, seconds, dt, every float64, visible bool, w io.Writer) (simSummary, error) {
	var sum simSummary
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "t\tlive\tspawned\treclaimed\tdropped\tspawner\t")

	steps := int(math.Ceil(seconds/dt - 1e-9))
	var rowSpawned, rowReclaimed, rowDropped int
	nextReport := every
	for i := 1; i <= steps; i++ {
		if err := inst.Simulate(dt, visible); err != nil {
			return sum, err
		}
		st := inst.Stats()
		sum.steps++
		sum.spawned += st.Spawned
		sum.reclaimed += st.Reclaimed
		sum.dropped += st.Dropped
		sum.peak = max(sum.peak, inst.Live())
		rowSpawned += st.Spawned
		rowReclaimed += st.Reclaimed
		rowDropped += st.Dropped

		t := float64(i) * dt
		if every > 0 && t+1e-9 < nextReport && i != steps {
			continue
		}
		for nextReport <= t+1e-9 {
			nextReport += math.Max(every, dt)
		}
		fmt.Fprintf(tw, "%.3f\t%d\t%d\t%d\t%d\t%s\t\n", t, inst.Live(), rowSpawned, rowReclaimed, rowDropped, inst.SpawnerState())
		rowSpawned, rowReclaimed, rowDropped = 0, 0, 0
	}
	return sum, tw.Flush()
}
