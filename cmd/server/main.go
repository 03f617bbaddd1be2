package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bhandras/avatarctl/internal/api"
	"github.com/bhandras/avatarctl/internal/catalog"
	"github.com/bhandras/avatarctl/internal/config"
	"github.com/bhandras/avatarctl/internal/dispatch"
	"github.com/bhandras/avatarctl/internal/engine"
	"github.com/bhandras/avatarctl/internal/logger"
	"github.com/bhandras/avatarctl/internal/session"
	"github.com/bhandras/avatarctl/internal/settings"
	"github.com/bhandras/avatarctl/internal/version"
	"github.com/bhandras/avatarctl/internal/viewer"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var (
	flagPort         int
	flagSettingsPath string
	flagModelsDir    string
	flagTickInterval time.Duration
	flagLogLevel     string
	flagDebug        bool
)

var rootCmd = &cobra.Command{
	Use:           "avatarctl",
	Short:         "Local control plane for a Live2D avatar viewer",
	Version:       version.RichVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(overridesFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return serve(cfg)
	},
}

func init() {
	f := rootCmd.Flags()
	f.IntVar(&flagPort, "port", config.DefaultPort, "Loopback port for the control API")
	f.StringVar(&flagSettingsPath, "settings", "", "Settings file (.json, .yaml or .db)")
	f.StringVar(&flagModelsDir, "models-dir", "", "Directory scanned for model bundles")
	f.DurationVar(&flagTickInterval, "tick", config.DefaultTickInterval, "Owner loop tick interval")
	f.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.BoolVar(&flagDebug, "debug", false, "Enable debug logging and gin debug mode")
}

// overridesFromFlags only overrides values the user set explicitly, so the
// environment still applies otherwise.
func overridesFromFlags(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	f := cmd.Flags()
	if f.Changed("port") {
		o.Port = &flagPort
	}
	if f.Changed("settings") {
		o.SettingsPath = &flagSettingsPath
	}
	if f.Changed("models-dir") {
		o.ModelsDir = &flagModelsDir
	}
	if f.Changed("tick") {
		o.TickInterval = &flagTickInterval
	}
	if f.Changed("log-level") {
		o.LogLevel = &flagLogLevel
	}
	if f.Changed("debug") {
		o.Debug = &flagDebug
	}
	return o
}

func serve(cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	defer logger.Sync()

	// Set Gin mode
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Open settings store
	logger.Infof("Settings: %s", cfg.SettingsPath)
	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	logger.Infof("Models: %s", cfg.ModelsDir)
	scanner := catalog.NewDirScanner(cfg.ModelsDir)

	sess := session.New()
	queue := dispatch.NewQueue()
	v := viewer.New(viewer.Deps{
		Session: sess,
		Queue:   queue,
		Engine:  engine.NewHeadless(),
		Overlay: engine.NewHeadlessOverlay(),
		Store:   store,
	})
	v.Start(scanner)

	// Start owner loop
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		dispatch.NewLoop(queue, cfg.TickInterval, v).Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	router := api.NewRouter(api.Deps{
		Session:        sess,
		Queue:          queue,
		Catalog:        scanner,
		Viewer:         v,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("avatarctl %s listening on http://%s", version.Version(), cfg.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	// Handlers may be waiting on the owner loop, so the server drains while
	// the loop is still running.
	logger.Infof("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnf("HTTP shutdown: %v", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
