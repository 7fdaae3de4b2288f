package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/storefront/internal/app"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "storefrontctl"})

	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "cart", "command: cart|cart-add|cart-remove|cart-set|cart-clear|history|history-remove|history-clear|view|login|logout|whoami|unread")
	flag.StringVar(&opts.id, "id", "", "product id")
	flag.IntVar(&opts.qty, "qty", 1, "quantity for cart-add and cart-set")
	flag.IntVar(&opts.limit, "limit", 0, "number of history entries to show, 0 for all")
	flag.StringVar(&opts.username, "username", "", "username for login")
	flag.StringVar(&opts.password, "password", "", "password for login")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "storefrontctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      logger.FormatConsole,
		Output:      os.Stderr,
	})

	application, err := app.New(ctx, cfg, logg)
	requireResource(ctx, logg, "application context", err)

	r := runner{app: application, out: os.Stdout, now: time.Now}
	runErr := r.run(ctx, opts)
	if err := application.Close(); err != nil {
		logg.Error(ctx, "error closing application", err)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
