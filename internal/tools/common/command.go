package common

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-login-portal/internal/config"
	"github.com/sandeepkv93/secure-login-portal/internal/database"
	"github.com/sandeepkv93/secure-login-portal/internal/observability"
	"github.com/sandeepkv93/secure-login-portal/internal/tools/ui"
	"gorm.io/gorm"
)

// ExitCodeFailure is returned by tools when the wrapped action fails.
const ExitCodeFailure = 3

type Action func(ctx context.Context) ([]string, error)

type Options struct {
	EnvFile string
	Timeout time.Duration
	CI      bool
}

func BindFlags(cmd *cobra.Command, opts *Options) {
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.CI, "ci", false, "non-interactive machine-readable output")
}

// Report is the outcome of one tool command. In --ci mode it is printed as
// JSON on stdout.
type Report struct {
	Tool      string   `json:"tool"`
	Command   string   `json:"command"`
	OK        bool     `json:"ok"`
	Details   []string `json:"details,omitempty"`
	Error     string   `json:"error,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms"`

	Err error `json:"-"`
}

func (r Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Run executes fn under the configured timeout, either headless or behind the
// terminal UI, and records the run in the tool metrics.
func Run(opts *Options, tool, command string, fn Action) Report {
	start := time.Now()
	var (
		details []string
		err     error
	)
	if opts.CI {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		details, err = fn(ctx)
		cancel()
	} else {
		details, err = ui.Run(tool+" "+command, opts.Timeout, fn)
	}
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	ctx := context.Background()
	observability.RecordToolCommandRun(ctx, tool, command, status)
	observability.RecordToolCommandDuration(ctx, tool, command, status, elapsed)

	report := Report{
		Tool:      tool,
		Command:   command,
		OK:        err == nil,
		Details:   details,
		ElapsedMS: elapsed.Milliseconds(),
		Err:       err,
	}
	if err != nil {
		report.Error = err.Error()
	}
	return report
}

// Finish prints the report when requested and exits non-zero on failure.
func Finish(opts *Options, report Report) {
	if opts.CI {
		_ = report.Write(os.Stdout)
	}
	if report.Err != nil {
		os.Exit(ExitCodeFailure)
	}
}

func LoadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func CloseDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
