package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/metrics"
	"civicdata/us-ingester/internal/pipeline"
	"civicdata/us-ingester/internal/postprocess"
	"civicdata/us-ingester/internal/sink"
	"civicdata/us-ingester/internal/source"
	"civicdata/us-ingester/internal/store"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOpts struct {
	cfgPath string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}
	root := &cobra.Command{
		Use:          "us-ingester",
		Short:        "Ingest US congressional bills, legislators and House floor updates",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env carries US_CONGRESS_PATH and US_VIRTENV_PYTHON_BIN_PATH
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&opts.cfgPath, "config", "/config.yml", "path to YAML config")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", true, "enable verbose logging")

	root.AddCommand(newRunCmd(opts), newFloorSessionsCmd(opts), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

func newRunCmd(opts *rootOpts) *cobra.Command {
	var (
		once     bool
		interval time.Duration
		only     string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run ingestion cycles until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			runner, err := buildRunner(cfg, only, opts.verbose)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if cfg.Metrics.ListenAddress != "" {
				srv := &http.Server{Addr: cfg.Metrics.ListenAddress, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Printf("metrics server: %v", err)
					}
				}()
				defer srv.Close()
				log.Printf("metrics listening on %s", cfg.Metrics.ListenAddress)
			}

			runOnce := func() {
				runner.RunOnce(ctx)
				if cfg.Metrics.Enable {
					if snap := metrics.Dump(); snap != "" {
						fmt.Println("METRICS SNAPSHOT: " + snap)
					}
				}
			}

			log.Printf("us-ingester %s started: %d source(s), interval=%s", Version, len(runner.Sources), interval)
			runOnce()
			if once {
				return nil
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					log.Printf("stopping: %v", ctx.Err())
					return nil
				case <-ticker.C:
					runOnce()
				}
			}
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle then exit")
	cmd.Flags().DurationVar(&interval, "interval", 6*time.Hour, "run interval")
	cmd.Flags().StringVar(&only, "only", "", "run only sources of this type (bills, legislators, floor)")
	return cmd
}

func buildRunner(cfg config.Config, only string, verbose bool) (*pipeline.Runner, error) {
	sinks, err := sink.FromConfig(cfg.Sinks)
	if err != nil {
		return nil, fmt.Errorf("init sinks: %w", err)
	}
	for _, s := range sinks {
		log.Printf("configured sink: %s", s.Name())
	}

	var d *store.Dedup
	if cfg.Dedup.Enable {
		d = store.NewDedup(cfg.Dedup.MaxKeys, cfg.Dedup.TTL)
		log.Printf("dedup enabled: max=%d ttl=%s", cfg.Dedup.MaxKeys, cfg.Dedup.TTL)
	} else {
		log.Printf("dedup disabled")
	}

	post, err := postprocess.New(cfg.Post)
	if err != nil {
		return nil, err
	}

	srcs := make([]source.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		if only != "" && sc.Type != only {
			continue
		}
		s, err := source.NewFromConfig(sc)
		if err != nil {
			return nil, fmt.Errorf("build source %q: %w", sc.Type, err)
		}
		srcs = append(srcs, s)
		log.Printf("configured source: %s", s.Name())
	}
	if len(srcs) == 0 {
		return nil, errors.New("no sources configured")
	}

	return &pipeline.Runner{
		Sources:   srcs,
		Sinks:     sinks,
		Dedup:     d,
		Post:      post,
		BatchSize: cfg.BatchSize,
		Verbose:   verbose,
	}, nil
}

func newFloorSessionsCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "floor-sessions",
		Short: "List the bulk House floor documents by congress and session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			floorCfg, ok := findFloor(cfg)
			if !ok {
				return errors.New("no floor source configured")
			}
			fs, err := source.NewFloorSource(floorCfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			sessions, err := fs.AvailableSessions(ctx)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%s\n", s.Congress, s.Session, fs.URL(s))
			}
			return nil
		},
	}
}

func findFloor(cfg config.Config) (config.FloorConfig, bool) {
	for _, sc := range cfg.Sources {
		if sc.Type == "floor" {
			return sc.Floor, true
		}
	}
	return config.FloorConfig{}, false
}
