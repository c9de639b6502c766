package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/conneroisu/blockwright/internal/server"
	"github.com/conneroisu/blockwright/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const reloadDebounce = 200 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the builder server",
	Long: `Start the HTTP server hosting builder sessions. Each session is edited
through a JSON operation endpoint and streams its change events over a
WebSocket. With --watch the registry is rebuilt whenever the payload file
changes; sessions created afterwards use the new registry.

Examples:
  blockwright serve
  blockwright serve --port 9000 --watch`,
	RunE: runServe,
}

var serveFlags *StandardFlags

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags = AddStandardFlags(serveCmd, "server")

	AddFlagValidation(serveCmd, "port", ValidatePort)

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("registry.watch", serveCmd.Flags().Lookup("watch"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := serveFlags.ValidateFlags(cmd); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, reg, logger)

	if cfg.Registry.Watch {
		fw, err := watcher.WatchPayload(ctx, cfg.Registry.Payload, reloadDebounce, srv.SetRegistry, logger,
			registry.WithRootPath(cfg.Registry.RootComponent))
		if err != nil {
			return fmt.Errorf("failed to watch payload: %w", err)
		}
		defer fw.Stop()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d components on http://%s:%d\n",
		len(reg.All()), cfg.Server.Host, cfg.Server.Port)

	return srv.Start(ctx)
}
