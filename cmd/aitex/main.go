package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"aitex/internal/capture"
	"aitex/internal/config"
	"aitex/internal/core"
	logpkg "aitex/internal/log"
	"aitex/internal/process"
	"aitex/internal/storage"
	"aitex/internal/upstream"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
)

const usage = "Usage: aitex -image <path|-> [-json] | -validate | -screenshot [-config path] [-timeout 2m]"

type options struct {
	imagePath  string
	validate   bool
	screenshot bool
	configPath string
	timeout    time.Duration
	jsonOutput bool
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("aitex", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.imagePath, "image", "", "Path to an image file (use '-' for stdin)")
	fs.BoolVar(&opts.validate, "validate", false, "Check the configured endpoint and exit")
	fs.BoolVar(&opts.screenshot, "screenshot", false, "Start the platform screenshot tool and exit")
	fs.StringVar(&opts.configPath, "config", "", "Path to the recognition config file")
	fs.DurationVar(&opts.timeout, "timeout", core.HTTPRequestTimeout, "Timeout for the recognition request")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Output the full result as JSON")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.imagePath == "" && !opts.validate && !opts.screenshot {
		return options{}, errors.New(usage)
	}
	if opts.timeout <= 0 {
		return options{}, fmt.Errorf("timeout must be positive, got %s", opts.timeout)
	}
	if opts.configPath == "" {
		opts.configPath = defaultConfigPath()
	}
	return opts, nil
}

// defaultConfigPath mirrors the server: CONFIG_FILE, then the user config dir.
func defaultConfigPath() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	return config.DefaultConfigPath()
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	dotenvErr := godotenv.Load()

	opts, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}

	logger := logpkg.NewAppLoggerWithConfig(stderr, logpkg.IsDebug()).Named("cli")
	if dotenvErr != nil {
		logger.Debug("No .env file found, using system environment variables")
	}

	if opts.screenshot {
		cmd, err := capture.NewTrigger().Trigger(context.Background())
		if err != nil {
			return err
		}
		logger.Info("Started %s", cmd)
		if opts.imagePath == "" && !opts.validate {
			return nil
		}
	}

	st := storage.NewFileStorage(opts.configPath, filepath.Join(filepath.Dir(opts.configPath), core.StatsFilePath))
	defer func() { _ = st.Close() }()

	settings := config.DefaultHTTPClientSettings()
	settings.RequestTimeout = opts.timeout

	service := process.NewService(process.ServiceConfig{
		Store:   config.NewStore(config.LoadRecognitionConfig(st, logger)),
		Client:  upstream.NewClient(upstream.NewHTTPClient(settings), nil, logger),
		Storage: st,
		Logger:  logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if opts.validate {
		cfg := service.CurrentConfig()
		if err := service.ValidateConnection(ctx, cfg); err != nil {
			return fmt.Errorf("connection check failed: %w", err)
		}
		fmt.Fprintf(stdout, "Connection to %s (%s) OK\n", cfg.APIBaseURL, cfg.ModelName)
		if opts.imagePath == "" {
			return nil
		}
	}

	cfg := service.CurrentConfig()
	if err := service.CheckReady(cfg); err != nil {
		return err
	}

	raw, err := readImage(opts.imagePath, stdin)
	if err != nil {
		return err
	}

	result, err := service.RecognizeWithConfig(ctx, cfg, raw)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}
	if result.EmptyReply {
		logger.Warn("Recognition endpoint returned no content")
	}

	return writeResult(stdout, result, opts.jsonOutput)
}

func readImage(path string, stdin io.Reader) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(io.LimitReader(stdin, core.MaxImageSizeBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		raw, err = os.ReadFile(path) //nolint:gosec // G304: path from command line
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
	}
	if len(raw) == 0 {
		return nil, errors.New("input image is empty")
	}
	return raw, nil
}

func writeResult(w io.Writer, result *core.RecognitionResult, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprintln(w, result.Latex)
		return err
	}
	data, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
