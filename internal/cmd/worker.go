package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Iron-Ham/postflow/internal/approval"
	"github.com/Iron-Ham/postflow/internal/config"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newWorkerCmd() *cobra.Command {
	var once bool
	c := &cobra.Command{
		Use:   "worker",
		Short: "Release scheduled posts when they fall due",
		Long: `Release scheduled posts when they fall due.

The worker checks for due posts every worker.interval and publishes up to
worker.batch_size of them per pass, each in its own transaction. A post
whose publication fails stays SCHEDULED and is retried on the next pass.
Prometheus metrics are served on worker.metrics_addr. Changes to the
config file adjust the log level, interval and batch size without a
restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, once)
		},
	}
	c.Flags().BoolVar(&once, "once", false, "run a single release pass and exit")
	return c
}

// releaseOutput is the JSON shape of a release pass.
type releaseOutput struct {
	Released []string        `json:"released"`
	Failed   []releaseFailed `json:"failed"`
}

type releaseFailed struct {
	TenantID string `json:"tenant_id"`
	PostID   string `json:"post_id"`
	Error    string `json:"error"`
}

func newReleaseOutput(r approval.ReleaseReport) releaseOutput {
	out := releaseOutput{Released: r.Released, Failed: []releaseFailed{}}
	if out.Released == nil {
		out.Released = []string{}
	}
	for _, f := range r.Failed {
		out.Failed = append(out.Failed, releaseFailed{TenantID: f.TenantID, PostID: f.PostID, Error: f.Err.Error()})
	}
	return out
}

func runWorker(cmd *cobra.Command, once bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	batch := a.cfg.Worker.BatchSize
	pass := func() (approval.ReleaseReport, error) {
		report, err := a.engine.ReleaseDue(ctx, batch)
		a.metrics.ObserveRelease(len(report.Released), len(report.Failed))
		for _, f := range report.Failed {
			a.logger.WithTenant(f.TenantID).WithPost(f.PostID).Warn("scheduled post not released", "error", f.Err.Error())
		}
		return report, err
	}

	if once {
		report, err := pass()
		if err != nil {
			return err
		}
		out := newReleaseOutput(report)
		return newPrinter(cmd).emit(out, func(w io.Writer) {
			success(w, "Released %d scheduled post(s)", len(out.Released))
			for _, f := range out.Failed {
				fmt.Fprintf(w, "  %s (%s): %s\n", f.PostID, f.TenantID, f.Error)
			}
		})
	}

	if addr := a.cfg.Worker.MetricsAddr; addr != "" {
		shutdown, err := serveMetrics(ctx, addr, a.metrics.Handler())
		if err != nil {
			return err
		}
		defer shutdown()
		a.logger.Info("serving metrics", "addr", addr)
	}

	reloaded := make(chan *config.Config, 1)
	if viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			cfg, err := config.Load()
			if err != nil {
				a.logger.Warn("ignoring invalid config change", "file", e.Name, "error", err.Error())
				return
			}
			select {
			case reloaded <- cfg:
			default:
			}
		})
		viper.WatchConfig()
	}

	interval := a.cfg.Worker.Interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("worker started", "interval", interval.String(), "batch_size", batch)
	success(cmd.ErrOrStderr(), "Worker running every %s (Ctrl+C to stop)", interval)

	for {
		if _, err := pass(); err != nil {
			a.logger.Error("release pass failed", "error", err.Error())
		}

		select {
		case <-ctx.Done():
			a.logger.Info("worker stopped")
			return nil
		case cfg := <-reloaded:
			a.logger.SetLevel(cfg.Logging.Level)
			batch = cfg.Worker.BatchSize
			if cfg.Worker.Interval != interval {
				interval = cfg.Worker.Interval
				ticker.Reset(interval)
			}
			a.logger.Info("config reloaded", "interval", interval.String(), "batch_size", batch)
		case <-ticker.C:
		}
	}
}

// serveMetrics serves handler on addr until the returned shutdown func is
// called or ctx ends.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
