package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-login-portal/internal/tools/common"
)

type options struct {
	common.Options
	baseURL     string
	profile     string
	duration    time.Duration
	rps         int
	concurrency int
	seed        int64
	email       string
	password    string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "loadgen", Short: "Generate portal traffic for rate limit and telemetry checks"}
	common.BindFlags(cmd, &opts.Options)
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "portal base URL")
	cmd.PersistentFlags().StringVar(&opts.profile, "profile", "mixed", "traffic profile: mixed|login|brute-force|probes")
	cmd.PersistentFlags().DurationVar(&opts.duration, "duration", 15*time.Second, "traffic duration")
	cmd.PersistentFlags().IntVar(&opts.rps, "rps", 20, "requests per second")
	cmd.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 6, "concurrent workers, each with its own cookie jar")
	cmd.PersistentFlags().Int64Var(&opts.seed, "seed", 42, "random seed")
	cmd.PersistentFlags().StringVar(&opts.email, "email", "", "account used for successful logins")
	cmd.PersistentFlags().StringVar(&opts.password, "password", "", "password for --email")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run load generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Timeout < opts.duration+15*time.Second {
				opts.Timeout = opts.duration + 15*time.Second
			}
			report := common.Run(&opts.Options, "loadgen", "run", func(ctx context.Context) ([]string, error) {
				res, err := Run(ctx, Config{
					BaseURL:     opts.baseURL,
					Profile:     opts.profile,
					Duration:    opts.duration,
					RPS:         opts.rps,
					Concurrency: opts.concurrency,
					Seed:        opts.seed,
					Email:       opts.email,
					Password:    opts.password,
				})
				if err != nil {
					return nil, err
				}
				return summarize(res), nil
			})
			common.Finish(&opts.Options, report)
			return nil
		},
	}
}

func summarize(res Result) []string {
	return []string{
		fmt.Sprintf("total_requests=%d", res.TotalRequests),
		fmt.Sprintf("failures=%d", res.Failures),
		fmt.Sprintf("status_2xx=%d", res.Status2xx),
		fmt.Sprintf("status_3xx=%d", res.Status3xx),
		fmt.Sprintf("status_4xx=%d", res.Status4xx),
		fmt.Sprintf("status_429=%d", res.Status429),
		fmt.Sprintf("status_5xx=%d", res.Status5xx),
	}
}
