package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/isdelr/resumai-be/internal/cli"
)

func main() {
	server := flag.String("server", envOr("RESUMAI_SERVER", "http://localhost:8080"), "base URL of the resumai API")
	sessionFile := flag.String("session-file", "", "where to keep the session token (default: user config dir)")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), cli.Usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := *sessionFile
	if path == "" {
		var err error
		if path, err = cli.DefaultSessionPath(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := cli.NewApp(cli.NewClient(*server, cli.NewFileBinding(path), nil), os.Stdin, os.Stdout)
	if err := app.Run(ctx, flag.Arg(0)); err != nil {
		if !errors.Is(err, cli.ErrUnauthenticated) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
