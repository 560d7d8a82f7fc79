// Package main provides effectctl, the effect library tool.
//
// Usage:
//
//	effectctl [--config sparkfx.yaml] <command> [flags] [args]
//
// Commands:
//
//	validate FILE...                 Parse and validate descriptor files
//	import [-name N] FILE...         Store descriptor files in the effect library
//	export [-format F] [-o OUT] NAME Write a library effect (or preset) to OUT or stdout
//	list                             List library effects
//	names                            List every loadable effect name
//	delete NAME...                   Remove effects from the library
//	schema [-o OUT]                  Write the descriptor JSON schema
//	simulate [-seconds S] [-dt D] [-seed N] NAME|FILE
//	                                 Run an effect headless and print per-step counts
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/decker502/sparkfx/pkg/config"
	"github.com/decker502/sparkfx/pkg/logging"
)

// errUsage 表示参数错误，退出码为 2
var errUsage = errors.New("usage")

type command struct {
	name string
	help string
	run  func(ctx context.Context, env *env, args []string) error
}

// env 命令共享的上下文
type env struct {
	cfg    *config.EngineConfig
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

var commands = []command{
	{"validate", "parse and validate descriptor files", runValidate},
	{"import", "store descriptor files in the effect library", runImport},
	{"export", "write a stored effect in any format", runExport},
	{"list", "list library effects", runList},
	{"names", "list every loadable effect name", runNames},
	{"delete", "remove effects from the library", runDelete},
	{"schema", "write the descriptor JSON schema", runSchema},
	{"simulate", "run an effect headless", runSimulate},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(realMain(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("effectctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "sparkfx.yaml", "engine config file")
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(stderr, fs)
		return 2
	}

	cfg, err := config.LoadEngineConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer logger.Sync()

	name := fs.Arg(0)
	for _, c := range commands {
		if c.name != name {
			continue
		}
		e := &env{cfg: cfg, log: logger, stdout: stdout, stderr: stderr}
		err := c.run(ctx, e, fs.Args()[1:])
		switch {
		case err == nil:
			return 0
		case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
			return 2
		}
		fmt.Fprintf(stderr, "effectctl %s: %v\n", name, err)
		return 1
	}
	fmt.Fprintf(stderr, "effectctl: unknown command %q\n", name)
	usage(stderr, fs)
	return 2
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "usage: effectctl [--config FILE] <command> [flags] [args]")
	fmt.Fprintln(w, "\ncommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.help)
	}
	fmt.Fprintln(w, "\nflags:")
	fs.PrintDefaults()
}
