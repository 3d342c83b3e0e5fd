package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/vademecum/artifact"
	"github.com/pithecene-io/vademecum/build"
	"github.com/pithecene-io/vademecum/cima"
	"github.com/pithecene-io/vademecum/cli/config"
	"github.com/pithecene-io/vademecum/cli/render"
	"github.com/pithecene-io/vademecum/log"
	"github.com/pithecene-io/vademecum/nomenclator"
	"github.com/pithecene-io/vademecum/types"
)

// Exit codes. A run that completes with nonzero error counters still exits
// 0: per-record errors are data-quality signals surfaced in the manifest,
// not run failures.
const (
	exitSuccess    = 0
	exitRunFailure = 1
	exitBadConfig  = 2
)

// Defaults applied when neither flag nor config file sets a value.
const (
	defaultOutDir       = "./out"
	defaultMaxFailedIDs = 2000
)

// BuildCommand returns the build command, the only command that executes
// work.
func BuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Run a full or incremental vademecum build",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to YAML config file",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Build mode: full or incremental",
			},
			&cli.StringFlag{
				Name:  "version",
				Usage: "Version label (YYYY-MM-DD), defaults to UTC today",
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Usage: "Output directory",
			},
			&cli.StringFlag{
				Name:  "state-path",
				Usage: "State file path (default <out-dir>/state.json)",
			},
			&cli.StringFlag{
				Name:  "cima-base-url",
				Usage: "CIMA REST base URL",
			},
			&cli.StringFlag{
				Name:  "nomenclator-url",
				Usage: "Nomenclator download URL",
			},
			&cli.StringFlag{
				Name:  "nomenclator-path",
				Usage: "Local nomenclator file path",
			},
			&cli.DurationFlag{
				Name:  "http-timeout",
				Usage: "Per-request timeout for upstream calls",
			},
			&cli.IntFlag{
				Name:  "http-retries",
				Usage: "Retry attempts per upstream call",
				Value: -1,
			},
			&cli.IntFlag{
				Name:  "max-failed-ids",
				Usage: "Cap on the persisted failed-registration list",
			},
			&cli.StringFlag{
				Name:  "s3-bucket",
				Usage: "Publish artifacts to this S3 bucket after the run",
			},
			&cli.StringFlag{
				Name:  "s3-prefix",
				Usage: "Key prefix for published artifacts",
			},
			&cli.StringFlag{
				Name:  "s3-region",
				Usage: "AWS region for publication (optional, uses default chain)",
			},
			&cli.StringFlag{
				Name:  "s3-endpoint",
				Usage: "Custom S3 endpoint for S3-compatible providers",
			},
			&cli.BoolFlag{
				Name:  "s3-path-style",
				Usage: "Force path-style S3 addressing",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: json or text (default: by TTY)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress result output",
			},
		},
		Action: buildAction,
	}
}

// settings is the fully resolved build configuration handed to the core.
type settings struct {
	mode         types.BuildMode
	version      string
	outDir       string
	statePath    string
	cimaBaseURL  string
	nomURL       string
	nomPath      string
	httpTimeout  time.Duration
	httpRetries  int
	maxFailedIDs int
	publish      artifact.S3Config
}

func buildAction(c *cli.Context) error {
	st, err := resolveSettings(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitBadConfig)
	}

	logger := log.NewLogger(log.RunMeta{
		RunID:   uuid.NewString(),
		Mode:    st.mode,
		Version: st.version,
	})

	client, err := cima.NewHTTPClient(cima.Config{
		BaseURL: st.cimaBaseURL,
		Timeout: st.httpTimeout,
		Retries: st.httpRetries,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitBadConfig)
	}

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var publisher build.Publisher
	if st.publish.Bucket != "" {
		p, err := artifact.NewPublisher(ctx, st.publish)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitBadConfig)
		}
		publisher = p
	}

	var loadTable build.TableLoader
	if st.nomURL != "" || st.nomPath != "" {
		opts := nomenclator.Options{
			URL:     st.nomURL,
			Path:    st.nomPath,
			OutDir:  st.outDir,
			Timeout: st.httpTimeout,
		}
		loadTable = func(ctx context.Context) (*nomenclator.Table, error) {
			return nomenclator.Load(ctx, opts)
		}
	}

	orch, err := build.NewOrchestrator(build.Config{
		Mode:         st.mode,
		Version:      st.version,
		OutDir:       st.outDir,
		StatePath:    st.statePath,
		MaxFailedIDs: st.maxFailedIDs,
		Client:       client,
		LoadTable:    loadTable,
		Publisher:    publisher,
		SourceBase:   st.cimaBaseURL,
		Logger:       logger,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitBadConfig)
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("build failed: %v", err), exitRunFailure)
	}

	if !c.Bool("quiet") {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), exitBadConfig)
		}
		if err := r.Result(result); err != nil {
			return cli.Exit(fmt.Sprintf("render result: %v", err), exitRunFailure)
		}
	}

	return nil
}

// resolveSettings merges flags over the optional config file and validates
// the result. Validation failures are fatal before any I/O happens.
func resolveSettings(c *cli.Context) (settings, error) {
	var fileCfg config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return settings{}, err
		}
		fileCfg = *loaded
	}

	st := settings{
		mode:         types.BuildMode(firstNonEmpty(c.String("mode"), fileCfg.Mode, string(types.ModeFull))),
		version:      firstNonEmpty(c.String("version"), fileCfg.Version, types.TodayVersion()),
		outDir:       firstNonEmpty(c.String("out-dir"), fileCfg.OutDir, defaultOutDir),
		cimaBaseURL:  firstNonEmpty(c.String("cima-base-url"), fileCfg.CimaBaseURL, cima.DefaultBaseURL),
		nomURL:       firstNonEmpty(c.String("nomenclator-url"), fileCfg.Nomenclator.URL),
		nomPath:      firstNonEmpty(c.String("nomenclator-path"), fileCfg.Nomenclator.Path),
		httpTimeout:  c.Duration("http-timeout"),
		httpRetries:  c.Int("http-retries"),
		maxFailedIDs: c.Int("max-failed-ids"),
		publish: artifact.S3Config{
			Bucket:       firstNonEmpty(c.String("s3-bucket"), fileCfg.Publish.Bucket),
			Prefix:       firstNonEmpty(c.String("s3-prefix"), fileCfg.Publish.Prefix),
			Region:       firstNonEmpty(c.String("s3-region"), fileCfg.Publish.Region),
			Endpoint:     firstNonEmpty(c.String("s3-endpoint"), fileCfg.Publish.Endpoint),
			UsePathStyle: c.Bool("s3-path-style") || fileCfg.Publish.S3PathStyle,
		},
	}
	st.statePath = firstNonEmpty(c.String("state-path"), fileCfg.StatePath, st.outDir+"/state.json")

	if st.httpTimeout == 0 {
		st.httpTimeout = fileCfg.HTTP.Timeout.Duration
	}
	if st.httpTimeout == 0 {
		st.httpTimeout = cima.DefaultTimeout
	}
	if st.httpRetries < 0 {
		if fileCfg.HTTP.Retries != nil {
			st.httpRetries = *fileCfg.HTTP.Retries
		} else {
			st.httpRetries = cima.DefaultRetries
		}
	}
	if st.maxFailedIDs == 0 {
		st.maxFailedIDs = fileCfg.MaxFailedIDs
	}
	if st.maxFailedIDs == 0 {
		st.maxFailedIDs = defaultMaxFailedIDs
	}

	if !st.mode.Valid() {
		return settings{}, fmt.Errorf("invalid mode %q (must be full or incremental)", st.mode)
	}
	if err := types.ValidateVersion(st.version); err != nil {
		return settings{}, err
	}
	if st.httpTimeout <= 0 {
		return settings{}, fmt.Errorf("http timeout must be > 0, got %s", st.httpTimeout)
	}
	if st.httpRetries < 0 {
		return settings{}, fmt.Errorf("http retries must be >= 0, got %d", st.httpRetries)
	}
	if st.maxFailedIDs <= 0 {
		return settings{}, fmt.Errorf("max failed ids must be > 0, got %d", st.maxFailedIDs)
	}
	return st, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
