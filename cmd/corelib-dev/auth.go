package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skymfe/corelib/auth"
)

func newAuthCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Print whether the configured token counts as signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := g.tokenSource()
			if err != nil {
				return err
			}
			accessor := auth.NewAccessor(tokens, g.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "Auth Status: %s\n", accessor.Status())
			return nil
		},
	}
	cmd.AddCommand(newIssueCmd())
	return cmd
}

func newIssueCmd() *cobra.Command {
	var subject, secret string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a development token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			tok, err := auth.IssueToken(subject, []byte(secret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "dev", "Token subject")
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
