package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-dnp3/dnp3master/internal/archive"
	"github.com/go-dnp3/dnp3master/internal/config"
	"github.com/go-dnp3/dnp3master/internal/logx"
	"github.com/go-dnp3/dnp3master/internal/store"
	"github.com/go-dnp3/dnp3master/internal/telemetry"
	"github.com/go-dnp3/dnp3master/master"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the master station daemon",
	Long: `Start the master station daemon: create every channel named in the
configuration file, enable it, and poll/scan its associations until
interrupted.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dnp3master",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logx.Error("telemetry shutdown failed", logx.KeyError, err)
		}
	}()
	if cfg.Telemetry.Enabled {
		logx.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint)
	}

	metrics := master.NopMetrics()
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		metrics = master.NewMetrics(registry)

		metricsServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logx.Error("metrics server failed", logx.KeyError, err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
		logx.Info("metrics enabled", logx.KeyPort, cfg.Metrics.Port)
	}

	var events *archive.Archive
	if cfg.Archive.Enabled {
		events, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("failed to open measurement archive: %w", err)
		}
		defer events.Close()
		logx.Info("measurement archive enabled", "path", cfg.Archive.Path)
	}

	var defs *store.Store
	if cfg.Store.Enabled {
		defs, err = store.Open(store.Config{
			Backend:     store.Backend(cfg.Store.Backend),
			SQLitePath:  cfg.Store.Path,
			PostgresDSN: cfg.Store.Postgres,
		})
		if err != nil {
			return fmt.Errorf("failed to open association store: %w", err)
		}
		defer defs.Close()
		logx.Info("association store enabled", "path", cfg.Store.Path)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, chCfg := range cfg.Channels {
		chCfg := chCfg
		ch, err := createChannel(chCfg, metrics)
		if err != nil {
			return fmt.Errorf("channel %q: %w", chCfg.Name, err)
		}

		if defs != nil {
			if err := defs.SaveChannel(channelRecord(chCfg)); err != nil {
				return fmt.Errorf("failed to persist channel %q: %w", chCfg.Name, err)
			}
		}

		for _, assocCfg := range chCfg.Associations {
			assocCfg := assocCfg
			mode, err := parseAutoTimeSync(assocCfg.AutoTimeSync)
			if err != nil {
				return fmt.Errorf("channel %q association %d: %w", chCfg.Name, assocCfg.Address, err)
			}
			acfg := master.DefaultAssociationConfig()
			acfg.AutoTimeSync = mode
			acfg.ResponseTimeout = assocCfg.ResponseTimeout
			acfg.KeepAliveTimeout = assocCfg.KeepAliveTimeout
			ch.AddAssociation(assocCfg.Address, acfg, master.SystemClockHandler{}, loggingReadHandler{
				channel: chCfg.Name, address: assocCfg.Address, archive: events,
			})
			if assocCfg.StartupIntegrityPeriod > 0 {
				ch.AddPoll(assocCfg.Address, master.ClassesRequest{Classes: master.Class1230()}, assocCfg.StartupIntegrityPeriod)
			}
			if defs != nil {
				if err := defs.SaveAssociation(associationRecord(chCfg.Name, assocCfg)); err != nil {
					return fmt.Errorf("failed to persist association %d on %q: %w", assocCfg.Address, chCfg.Name, err)
				}
			}
		}

		ch.Enable()
		logx.Info("channel enabled", logx.KeyChannel, chCfg.Name)

		// One goroutine per channel, joined at shutdown: each waits for
		// the shared context to cancel, then tears down its own channel,
		// so a future per-channel fatal error (returned instead of nil)
		// would cancel gctx and bring every other channel down with it.
		g.Go(func() error {
			<-gctx.Done()
			ch.Destroy()
			return nil
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	logx.Info("master station running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logx.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()
	_ = g.Wait()
	logx.Info("master station stopped")
	return nil
}

func createChannel(chCfg config.ChannelConfig, metrics *master.Metrics) (*master.Channel, error) {
	onState := func(s master.ClientState) {
		logx.Info("channel state", logx.KeyChannel, chCfg.Name, logx.KeyState, s.String())
	}
	if chCfg.TCP != nil {
		strategy := master.ConnectStrategy{
			MinConnectDelay: chCfg.TCP.MinConnectDelay,
			MaxConnectDelay: chCfg.TCP.MaxConnectDelay,
			ReconnectDelay:  chCfg.TCP.ReconnectDelay,
		}
		return master.CreateChannelTCP(chCfg.TCP.Endpoints, strategy, int(chCfg.TxBufferSize.Int64()), int(chCfg.RxBufferSize.Int64()), onState, metrics), nil
	}
	if chCfg.Serial != nil {
		// Opening an actual termios-configured serial port is
		// platform-specific and left to embedders that link a serial
		// library of their choice; this daemon build only wires TCP
		// channels (spec §4.1's substitution point, master.SerialOpener).
		return nil, fmt.Errorf("serial channel %q: no serial port opener registered for this build", chCfg.Name)
	}
	return nil, fmt.Errorf("channel %q configures neither tcp nor serial", chCfg.Name)
}

func parseAutoTimeSync(s string) (master.AutoTimeSyncMode, error) {
	switch s {
	case "", "none":
		return master.AutoTimeSyncNone, nil
	case "lan":
		return master.AutoTimeSyncLan, nil
	case "non_lan", "nonlan":
		return master.AutoTimeSyncNonLan, nil
	default:
		return 0, fmt.Errorf("invalid auto_time_sync: %q", s)
	}
}

func channelRecord(chCfg config.ChannelConfig) store.ChannelRecord {
	rec := store.ChannelRecord{
		Name:         chCfg.Name,
		TxBufferSize: int(chCfg.TxBufferSize.Int64()),
		RxBufferSize: int(chCfg.RxBufferSize.Int64()),
	}
	if chCfg.TCP != nil {
		rec.Kind = "tcp"
		rec.Endpoints = strings.Join(chCfg.TCP.Endpoints, ",")
	} else if chCfg.Serial != nil {
		rec.Kind = "serial"
		rec.Endpoints = chCfg.Serial.Path
	}
	return rec
}

func associationRecord(channel string, a config.AssociationConfig) store.AssociationRecord {
	return store.AssociationRecord{
		ChannelName:              channel,
		Address:                  a.Address,
		ResponseTimeoutMs:        a.ResponseTimeout.Milliseconds(),
		AutoTimeSync:             a.AutoTimeSync,
		KeepAliveTimeoutMs:       a.KeepAliveTimeout.Milliseconds(),
		EnableUnsolicited:        a.EnableUnsolicited,
		StartupIntegrityPeriodMs: a.StartupIntegrityPeriod.Milliseconds(),
	}
}

// loggingReadHandler logs incoming binary input, analog input and counter
// measurements via logx and, when an archive is configured, records them for
// later history queries; every other callback is the embedded no-op. It is
// the default read handler for the daemon, which has no in-process consumer
// of its own.
type loggingReadHandler struct {
	master.NopReadHandler
	channel string
	address uint16
	archive *archive.Archive
}

func (h loggingReadHandler) BinaryInput(index uint32, value master.BinaryValue) {
	logx.Debug("binary-input", logx.KeyAddress, h.address, "index", index, "value", value.Value, "time", value.Time)
	h.record(archive.KindBinary, index, boolToFloat(value.Value), value.Flags, value.Time)
}

func (h loggingReadHandler) AnalogInput(index uint32, value master.AnalogValue) {
	logx.Debug("analog-input", logx.KeyAddress, h.address, "index", index, "value", value.Value, "time", value.Time)
	h.record(archive.KindAnalog, index, value.Value, value.Flags, value.Time)
}

func (h loggingReadHandler) Counter(index uint32, value master.CounterValue) {
	logx.Debug("counter", logx.KeyAddress, h.address, "index", index, "value", value.Value)
	h.record(archive.KindCounter, index, float64(value.Value), value.Flags, value.Time)
}

func (h loggingReadHandler) record(kind archive.PointKind, index uint32, value float64, flags uint8, t *time.Time) {
	if h.archive == nil {
		return
	}
	ev := archive.Event{Channel: h.channel, Association: h.address, Kind: kind, Index: index, Value: value, Flags: flags}
	if t != nil {
		ev.Time = *t
	}
	if err := h.archive.Record(ev); err != nil {
		logx.Error("failed to archive measurement", logx.KeyError, err)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
