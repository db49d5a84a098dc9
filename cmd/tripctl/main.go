package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/kirillkom/itinerary-agent/internal/bootstrap"
	"github.com/kirillkom/itinerary-agent/internal/config"
	"github.com/kirillkom/itinerary-agent/internal/observability/logging"
)

const serviceName = "tripctl"

func main() {
	if err := run(os.Args[1:], os.Stdout, flags.PrintErrors); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, extra flags.Options) error {
	opts := &Options{}
	opts.Init(commandName(args), out)
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash|extra)
	_, err := parser.ParseArgs(args)
	return err
}

func commandName(args []string) string {
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	return ""
}

// withApp builds the application for a single command and tears it down after.
func withApp(root *Options, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg := config.Load()
	level := "error"
	if root != nil && root.Verbose {
		level = "debug"
	}
	logger := logging.New(os.Stderr, serviceName, level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()
	return fn(ctx, app)
}
