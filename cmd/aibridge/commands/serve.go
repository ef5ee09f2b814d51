package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aibridge-dev/aibridge/internal/config"
	"github.com/aibridge-dev/aibridge/internal/engine"
	"github.com/aibridge-dev/aibridge/internal/logging"
	"github.com/aibridge-dev/aibridge/internal/server"
	"github.com/aibridge-dev/aibridge/internal/session"
	"github.com/aibridge-dev/aibridge/internal/storage"
	"github.com/aibridge-dev/aibridge/pkg/types"
)

var (
	serveDir  string
	serveHTTP string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio",
	Long: `Start the aibridge MCP server on stdin/stdout.

Logs go to stderr; stdout carries only the MCP transport. An optional
debug HTTP endpoint can be enabled with --http.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Project directory (defaults to the working directory)")
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", "Optional debug HTTP listen address, e.g. 127.0.0.1:8117")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := getWorkDir(serveDir)
	if err != nil {
		return err
	}

	log := logging.Component("main")
	log.Info().Str("version", Version).Str("dir", workDir).Msg("starting aibridge")

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}

	mode := config.ResolveAuthMode()
	log.Info().Str("auth", string(mode)).Str("model", cfg.Model).Msg("configuration loaded")

	store := storage.New(paths.StoragePath())

	registry := session.NewRegistry(func(info *types.Session) (engine.Engine, error) {
		engCfg := *cfg
		if info.Model != "" {
			engCfg.Model = info.Model
		}
		return engine.NewChatEngine(&engCfg, mode), nil
	}, cfg, store)
	defer registry.CloseAll()

	// Config edits apply to sessions created after the change.
	watcher, err := config.Watch(workDir, func(next *types.Config) {
		*cfg = *next
		log.Info().Msg("configuration reloaded")
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
	} else {
		defer watcher.Close()
	}

	srv := server.New(cfg, registry)

	var debug *server.DebugServer
	if serveHTTP != "" {
		debug = srv.NewDebugServer(serveHTTP)
		go func() {
			log.Info().Str("addr", serveHTTP).Msg("debug endpoint listening")
			if err := debug.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("debug endpoint failed")
			}
		}()
	}

	done := make(chan error, 1)
	go func() {
		done <- srv.ServeStdio()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-done:
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		err = nil
	}

	if debug != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = debug.Shutdown(shutdownCtx)
	}

	return err
}

// getWorkDir returns the directory flag or the current directory.
func getWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
