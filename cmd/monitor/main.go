// Package monitor implements the `netglance monitor` subcommand: the
// long-running monitoring daemon with its HTTP API and WebSocket feed.
package monitor

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/saveenergy/netglance/internal/api"
	"github.com/saveenergy/netglance/internal/config"
	"github.com/saveenergy/netglance/internal/counters"
	"github.com/saveenergy/netglance/internal/ifwatch"
	"github.com/saveenergy/netglance/internal/logging"
	netmon "github.com/saveenergy/netglance/internal/monitor"
	"github.com/saveenergy/netglance/internal/pinger"
	"github.com/saveenergy/netglance/internal/procsample"
	"github.com/saveenergy/netglance/internal/pubaddr"
	"github.com/saveenergy/netglance/internal/store"
	"github.com/saveenergy/netglance/internal/websocket"
	"github.com/saveenergy/netglance/pkg/diagnostic"
)

const (
	counterReadTimeout  = 2 * time.Second
	addressMinInterval  = 5 * time.Minute
	shutdownGracePeriod = 30 * time.Second
	databaseFileName    = "netglance.db"
)

// monitorFlags holds the raw flag values; only flags the user actually
// set are applied over the env/file config.
type monitorFlags struct {
	configPath     string
	port           string
	bindAddress    string
	probeHost      string
	refreshSeconds int
	dataDir        string
	allowedOrigins string
	noStore        bool
}

func buildMonitorFlagSet(cfg *config.Config) (*flag.FlagSet, *monitorFlags) {
	fs := flag.NewFlagSet("netglance monitor", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	fv := &monitorFlags{}
	fs.StringVar(&fv.configPath, "config", config.DefaultConfigPath(), "Path to YAML config file")
	fs.StringVar(&fv.port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&fv.bindAddress, "bind-address", cfg.BindAddress, "HTTP bind address")
	fs.StringVar(&fv.probeHost, "probe-host", cfg.ProbeHost, "Latency probe target host")
	fs.IntVar(&fv.refreshSeconds, "refresh-interval", cfg.Settings.RefreshSeconds, "Sampling interval in seconds")
	fs.StringVar(&fv.dataDir, "data-dir", cfg.DataDir, "Directory for the snapshot database")
	fs.StringVar(&fv.allowedOrigins, "allowed-origins", "", "Comma-separated allowed origins")
	fs.BoolVar(&fv.noStore, "no-store", false, "Disable snapshot persistence")
	return fs, fv
}

func applyMonitorFlagOverrides(cfg *config.Config, fs *flag.FlagSet, fv *monitorFlags) error {
	var applyErr error
	fs.Visit(func(f *flag.Flag) {
		if applyErr != nil {
			return
		}
		switch f.Name {
		case "port":
			cfg.Port = fv.port
		case "bind-address":
			cfg.BindAddress = fv.bindAddress
		case "probe-host":
			cfg.ProbeHost = fv.probeHost
		case "refresh-interval":
			if fv.refreshSeconds <= 0 {
				applyErr = fmt.Errorf("refresh-interval must be a positive number of seconds")
				return
			}
			cfg.Settings.RefreshSeconds = fv.refreshSeconds
		case "data-dir":
			cfg.DataDir = fv.dataDir
		case "allowed-origins":
			entries := strings.Split(fv.allowedOrigins, ",")
			origins := make([]string, 0, len(entries))
			for _, entry := range entries {
				if value := strings.TrimSpace(entry); value != "" {
					origins = append(origins, value)
				}
			}
			cfg.AllowedOrigins = origins
		}
	})
	return applyErr
}

// Run starts the monitor daemon and blocks until SIGINT/SIGTERM.
func Run(args []string, version string) int {
	logLevel := logging.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = logging.LevelDebug
	}
	logging.Init(logLevel)

	cfg := config.DefaultConfig()
	fs, fv := buildMonitorFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := cfg.LoadFromFile(fv.configPath); err != nil {
		logging.Error("Failed to load config file", logging.Field{Key: "error", Value: err})
		return 1
	}
	if err := cfg.LoadFromEnv(); err != nil {
		logging.Error("Failed to load config", logging.Field{Key: "error", Value: err})
		return 1
	}
	if err := applyMonitorFlagOverrides(cfg, fs, fv); err != nil {
		logging.Error("Invalid flag value", logging.Field{Key: "error", Value: err})
		return 2
	}
	if err := cfg.Validate(); err != nil {
		logging.Error("Invalid configuration", logging.Field{Key: "error", Value: err})
		return 1
	}

	pprofServer := startPprofServer(cfg)
	startRuntimeStatsLogger(cfg)

	// Persistence is best-effort: a broken database disables the stored
	// history endpoint but never stops live monitoring.
	var snapStore *store.Store
	if !fv.noStore {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			logging.Warn("Cannot create data directory, persistence disabled",
				logging.Field{Key: "dir", Value: cfg.DataDir},
				logging.Field{Key: "error", Value: err})
		} else {
			var err error
			snapStore, err = store.New(filepath.Join(cfg.DataDir, databaseFileName),
				cfg.MaxStoredSnapshots, cfg.CleanupSchedule)
			if err != nil {
				logging.Warn("Cannot open snapshot store, persistence disabled",
					logging.Field{Key: "error", Value: err})
				snapStore = nil
			}
		}
	}

	address := pubaddr.New(cfg.PublicAddressURL, cfg.PublicAddressTimeout, addressMinInterval)
	refreshAddress := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.PublicAddressTimeout+time.Second)
		defer cancel()
		address.Refresh(ctx)
	}

	mon := netmon.New(cfg.Settings, cfg.ProbeHost, netmon.Deps{
		Counters: counters.NewReader(counterReadTimeout),
		Sampler:  procsample.New(cfg.SamplerCommand, cfg.SamplerMinInterval, procsample.NewPSResolver()),
		Watcher:  ifwatch.New(ifwatch.NewExecSource(cfg.RouteMonitorCommand), refreshAddress),
		Prober:   pinger.New(nil, cfg.ProbeTimeout),
		Address:  address,
	})

	go refreshAddress()

	if err := mon.Start(context.Background()); err != nil {
		logging.Error("Failed to start monitor", logging.Field{Key: "error", Value: err})
		return 1
	}

	wsServer := websocket.NewServer()
	wsServer.SetAllowedOrigins(cfg.AllowedOrigins)
	wsServer.SetPingInterval(cfg.WSPingInterval)

	go publishSnapshots(mon, wsServer, snapStore)

	apiHandler := api.NewHandler(mon)
	apiHandler.SetVersion(version)
	if snapStore != nil {
		apiHandler.SetStore(snapStore)
	}

	router := api.NewRouter(apiHandler)
	router.SetRateLimiter(api.NewRateLimiter(cfg.APIRateLimit))
	router.SetAllowedOrigins(cfg.AllowedOrigins)
	router.SetWebSocketHandler(func(w http.ResponseWriter, r *http.Request) {
		wsServer.HandleFeed(w, r, mon.Latest())
	})

	srv := &http.Server{
		Addr:              cfg.BindAddress + ":" + cfg.Port,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logging.Info("Monitor starting",
			logging.Field{Key: "address", Value: srv.Addr},
			logging.Field{Key: "refresh_interval", Value: mon.Settings().Interval().String()},
			logging.Field{Key: "probe_host", Value: cfg.ProbeHost},
			logging.Field{Key: "persistence", Value: snapStore != nil})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	exitCode := 0
	select {
	case sig := <-quit:
		logging.Info("Shutting down...", logging.Field{Key: "signal", Value: sig.String()})
	case err := <-serverErr:
		logging.Error("Server failed", logging.Field{Key: "error", Value: err})
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error", logging.Field{Key: "error", Value: err})
	}

	mon.Stop()
	wsServer.Close()
	if snapStore != nil {
		snapStore.Close()
	}
	shutdownPprofServer(pprofServer, 5*time.Second)

	logging.Info("Monitor stopped")
	return exitCode
}

// publishSnapshots drains the monitor's feed: every published snapshot
// goes to connected WebSocket clients and, when enabled, to the store.
// Returns when the monitor closes the subscription.
func publishSnapshots(mon *netmon.Monitor, wsServer *websocket.Server, snapStore *store.Store) {
	logger := logging.NewLogger("publisher")
	_, ch := mon.Subscribe()

	for snap := range ch {
		wsServer.Broadcast(snap)

		if snapStore != nil {
			if err := snapStore.Save(snap); err != nil {
				logger.Warn("Failed to persist snapshot", logging.Field{Key: "error", Value: err})
			}
		}

		threshold := mon.Settings().AlertThresholdMBps
		if diagnostic.ExceedsThreshold(snap.Speed, threshold) {
			logger.Warn("Throughput above alert threshold",
				logging.Field{Key: "threshold_mbps", Value: threshold},
				logging.Field{Key: "upload_bps", Value: snap.Speed.UploadBps},
				logging.Field{Key: "download_bps", Value: snap.Speed.DownloadBps})
		}
	}
}
