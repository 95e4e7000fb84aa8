// Command viewer is an interactive terminal map of the store directory.
// Stores appear as they are geocoded; selecting a pin and pressing enter
// opens its info window and adds it to the favorites.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/app"
	"github.com/kass/go-store-map/pkg/config"
	"github.com/kass/go-store-map/pkg/mapview"
	"github.com/kass/go-store-map/pkg/models"
)

func main() {
	var (
		configFile = flag.String("config", "", "Config file (default ./storemap.yaml)")
		logFile    = flag.String("log", "storemap-viewer.log", "Log file; the terminal belongs to the map")
	)
	flag.Parse()

	if err := run(*configFile, *logFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile, logFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := fileLogger(cfg.Log, logFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	records := env.LoadDirectory(ctx)

	host := mapview.NewHeadlessHost(mapWidth*cellWidth, mapHeight*cellHeight)
	opts := env.MapOptions()

	var p *tea.Program
	view := mapview.New(host.Loader(), env.Sequencer(), mapview.Options{
		MapOptions: opts,
		OnUpdate: func(resolved []*models.LocationRecord) {
			// runs on the view loop; Send must not block it
			go p.Send(resolvedMsg(len(resolved)))
		},
	})

	m := newModel(ctx, view, host, env.Favorites, opts.Center, len(records))
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	view.Start(ctx, records)
	_, runErr := p.Run()

	view.Close()
	if view.Summary().Resolved > 0 {
		snap := env.Snapshotter(func() []*models.LocationRecord { return records })
		if err := snap.Save(context.WithoutCancel(ctx)); err != nil {
			zap.L().Warn("viewer: snapshot failed", zap.Error(err))
		}
	}

	if runErr != nil && runErr != tea.ErrProgramKilled {
		return runErr
	}
	return view.Err()
}

func fileLogger(cfg config.LogConfig, path string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{path}
	zapCfg.ErrorOutputPaths = []string{path}
	if cfg.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}
	return zapCfg.Build()
}
