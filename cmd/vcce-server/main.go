package main

import (
	"context"
	"fmt"
	nethttp "net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Vic92548/VCCE-Server/pkg/ai"
	"github.com/Vic92548/VCCE-Server/pkg/config"
	"github.com/Vic92548/VCCE-Server/pkg/http"
	"github.com/Vic92548/VCCE-Server/pkg/logger"
	"github.com/Vic92548/VCCE-Server/pkg/patch"
	"github.com/Vic92548/VCCE-Server/pkg/server"
	"github.com/Vic92548/VCCE-Server/pkg/workspace"
)

const version = "0.3.0"

var (
	flagListen string
	flagConfig string
	flagHTTP   string
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "vcce-server",
	Short: "Local backend daemon for the VCCE editor",
	Long: `vcce-server is a long-lived local daemon the VCCE editor connects to
over TCP. It handles file operations, streaming command execution and
AI chat with project context on the editor's behalf.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("vcce-server " + version)
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagListen, "listen", "", "TCP listen address (overrides config)")
	rootCmd.Flags().StringVar(&flagHTTP, "http", "", "enable HTTP debug server on specified address (e.g. ':6060')")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default ~/.vcce-server/config.json)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

func run() error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flagListen != "" {
		cfg.Listen = flagListen
	}

	log, err := cfg.Log.CreateLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()
	if flagDebug {
		log.SetLevel(logger.DEBUG)
	}

	cache := workspace.NewCache(cfg.Context.MaxBytes, cfg.Context.Watch)
	defer cache.Close()
	patches := patch.NewRegistry()
	broker := ai.NewBroker(cfg.Model, cache, patches)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, log, broker, patches)

	if flagHTTP != "" {
		// pprof registers itself on the default mux.
		http.NewMetricsHandler(srv.Metrics()).RegisterRoutes(nethttp.DefaultServeMux)
		go func() {
			log.Info("debug server listening on %s", flagHTTP)
			if err := nethttp.ListenAndServe(flagHTTP, nil); err != nil {
				log.Error("debug server: %v", err)
			}
		}()
	}

	log.Info("vcce-server %s starting", version)
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	log.Info("shutting down")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
