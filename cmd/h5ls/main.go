package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/h5rest/h5rest/internal/client"
	"github.com/h5rest/h5rest/internal/config"
	"github.com/h5rest/h5rest/internal/linktable"
	"github.com/h5rest/h5rest/internal/transport"
)

func main() {
	exitCode := run()
	os.Exit(exitCode)
}

func run() int {
	cfg, exitResult := config.Parse(os.Args)
	if exitResult != nil {
		exitResult.Print()
		return exitResult.ExitCode
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := list(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func list(ctx context.Context, cfg *config.Config) error {
	httpClient, err := cfg.HTTPClient()
	if err != nil {
		return err
	}

	tr, err := transport.New(transport.Options{
		Endpoint:   cfg.Endpoint,
		HTTPClient: httpClient,
		Username:   cfg.Username,
		Password:   cfg.Password,
		RateLimit:  cfg.RateLimit,
		Debug:      cfg.Debug,
	})
	if err != nil {
		return err
	}

	file, err := client.New(tr).Open(ctx, cfg.Domain)
	if err != nil {
		return err
	}

	_, err = file.IterateLinks(ctx, cfg.Path, client.IterateOptions{
		Kind:      cfg.Kind,
		Order:     cfg.Order,
		Recursive: cfg.Recursive,
	}, printEntry)
	return err
}

func printEntry(path string, entry *linktable.Entry) int {
	switch entry.Class {
	case linktable.ClassHard:
		fmt.Printf("%-40s %s %s\n", path, entry.Target.Kind, entry.Target.ID)
	case linktable.ClassSoft:
		fmt.Printf("%-40s soft -> %s\n", path, entry.H5Path)
	case linktable.ClassExternal:
		fmt.Printf("%-40s external -> %s:%s\n", path, entry.H5Domain, entry.H5Path)
	}
	return 0
}
