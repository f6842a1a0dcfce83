package main

import (
	"context"
	"fmt"
	"rentio/pkg/client"
	"time"

	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	opts := &payloadOptions{}
	var (
		baseURL  string
		provider string
		timeout  time.Duration
		wait     time.Duration
		unsigned bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Sign a webhook and post it to a payments service",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.body(cmd.InOrStdin())
			if err != nil {
				return err
			}

			headers := map[string]string{}
			if !unsigned {
				if headers, err = signedHeaders(opts.secret, body, time.Now()); err != nil {
					return err
				}
			}

			httpClient := client.NewHttpClient(baseURL, timeout)
			if wait > 0 {
				if err := httpClient.WaitForHealthy(cmd.Context(), wait); err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			path := fmt.Sprintf("/api/payments/%s/webhook", provider)
			resp, err := httpClient.POSTRaw(ctx, path, body, headers)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", resp.StatusCode, resp.Body)
			if !resp.OK() {
				return fmt.Errorf("webhook rejected: %s", resp.ErrorMessage())
			}
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Payments service base URL")
	cmd.Flags().StringVar(&provider, "provider", "yoco", "Provider path segment")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for /health before sending")
	cmd.Flags().BoolVar(&unsigned, "unsigned", false, "Send without signing headers")
	return cmd
}
