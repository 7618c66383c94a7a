// Package main provides the entry point for the panelviz desktop app.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"panelviz/internal/app"
	"panelviz/internal/cli"
	"panelviz/internal/config"
	"panelviz/internal/project"
	"panelviz/internal/version"
	"panelviz/ui/mainwindow"
	"panelviz/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
)

const appID = "io.panelviz.desktop"

func main() {
	configFile := flag.String("config", "", "config file")
	flag.Parse()

	mgr, err := cli.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	rt, err := cli.NewRuntime(mgr.Get())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer rt.Close()

	log := rt.Log
	log.Info().Str("version", version.Version).Msg("Starting panelviz")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rt.Preload(ctx)
	rt.WatchTextures(ctx)

	state, err := rt.NewState()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session")
	}

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.PanelTheme{})

	win := mainwindow.New(fyneApp, state, prefs.Load())

	if mgr.ConfigFile() != "" {
		if err := mgr.Watch(); err != nil {
			log.Warn().Err(err).Msg("Config watch disabled")
		}
		mgr.OnConfigChange(func(cfg *config.Config) {
			level := cfg.LoggerConfig().Level
			zerolog.SetGlobalLevel(level)
			log.Info().Str("level", level.String()).Msg("Configuration reloaded, restart to apply render settings")
		})
	}

	// Handle command line arguments
	if args := flag.Args(); len(args) > 0 {
		openArg(ctx, state, args[0])
	} else {
		win.RestoreLastPhoto()
	}

	win.ShowAndRun()
}

// openArg opens a saved scene or a photo given on the command line.
func openArg(ctx context.Context, state *app.State, path string) {
	var err error
	if strings.EqualFold(filepath.Ext(path), project.Extension) {
		err = state.LoadScene(ctx, path)
	} else {
		err = state.LoadImage(ctx, path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", path, err)
	}
}
