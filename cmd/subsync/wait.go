package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/subsync/pkg/config"
	"github.com/dmitrymomot/subsync/svc/access"
)

func newWaitCmd() *cobra.Command {
	var (
		baseURL  string
		token    string
		interval time.Duration
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Poll a deployed instance until the caller's subscription is active",
		Long: `Poll GET /subscription-status with the given access token until the
subscription is active or trialing. Exits non-zero when the status is not
confirmed within the attempt bound. POLL_INTERVAL and POLL_ATTEMPTS
supply the defaults for --interval and --attempts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if baseURL == "" || token == "" {
				return errors.New("--url and --token are required")
			}
			var cfg access.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				interval = cfg.PollInterval
			}
			if !cmd.Flags().Changed("attempts") {
				attempts = cfg.PollAttempts
			}
			out := cmd.OutOrStdout()

			p := access.NewPoller(access.NewClient(baseURL), access.Session{AccessToken: token},
				access.WithInterval(interval),
				access.WithMaxAttempts(attempts),
				access.WithOnAttempt(func(n int, r access.Report, err error) {
					if err != nil {
						fmt.Fprintf(out, "attempt %d/%d: %v\n", n, attempts, err)
						return
					}
					fmt.Fprintf(out, "attempt %d/%d: status=%q view=%s\n", n, attempts, r.Status, r.View)
				}),
			)

			r, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "confirmed: %s (%s)\n", r.Status, r.SubscriptionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "base URL of the deployed API")
	cmd.Flags().StringVar(&token, "token", "", "user access token")
	cmd.Flags().DurationVar(&interval, "interval", access.DefaultPollInterval, "pause between reads")
	cmd.Flags().IntVar(&attempts, "attempts", access.DefaultPollAttempts, "reads before giving up")
	return cmd
}
