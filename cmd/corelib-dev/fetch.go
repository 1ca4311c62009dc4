package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skymfe/corelib/fetch"
	"github.com/skymfe/corelib/httpclient"
)

func newQueryCmd(g *globals) *cobra.Command {
	var method string
	var cacheTTL time.Duration
	var refetch int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "query <target>",
		Short: "Run a Query and print every state transition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.newProvider()
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			opts := &fetch.QueryOptions[json.RawMessage]{Method: fetch.Method(strings.ToUpper(method))}
			if cacheTTL > 0 {
				opts.Cache = &httpclient.CacheDirective{TTL: cacheTTL}
			}

			// Start disabled so the subscription is in place before the first
			// attempt; enabling it through Update then runs that attempt.
			q, err := fetch.NewQuery[json.RawMessage](p, args[0], &fetch.QueryOptions[json.RawMessage]{Disabled: true})
			if err != nil {
				return err
			}
			defer q.Close()

			unsubscribe := q.Subscribe(func(st fetch.State[json.RawMessage]) {
				printState(out, "query", st)
			})
			defer unsubscribe()

			if _, err := q.Update(args[0], opts); err != nil {
				return err
			}
			if err := q.Wait(ctx); err != nil {
				return err
			}
			for i := 0; i < refetch; i++ {
				if err := q.Refetch(ctx); err != nil {
					return err
				}
			}

			g.logger.Debug().Str("target", args[0]).Int("refetches", refetch).Msg("query finished")
			return q.State().Err
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP verb (GET, POST, PUT, DELETE)")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 0, "Cache the GET response for this long")
	cmd.Flags().IntVar(&refetch, "refetch", 0, "Refetch this many times after the first result")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Overall deadline")
	return cmd
}

func newMutateCmd(g *globals) *cobra.Command {
	var method string
	var data string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "mutate <target>",
		Short: "Run a Mutation once and print every state transition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if data != "" && !json.Valid([]byte(data)) {
				return fmt.Errorf("--data is not valid JSON")
			}
			body := json.RawMessage("{}")
			if data != "" {
				body = json.RawMessage(data)
			}

			p, err := g.newProvider()
			if err != nil {
				return err
			}
			defer p.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			m, err := fetch.NewMutation[json.RawMessage, json.RawMessage](p, args[0], &fetch.MutationOptions[json.RawMessage]{
				Method: fetch.Method(strings.ToUpper(method)),
			})
			if err != nil {
				return err
			}
			defer m.Close()

			unsubscribe := m.Subscribe(func(st fetch.State[json.RawMessage]) {
				printState(out, "mutate", st)
			})
			defer unsubscribe()

			if err := m.Mutate(ctx, body); err != nil {
				return err
			}
			return m.State().Err
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", "POST", "HTTP verb (POST, PUT, DELETE)")
	cmd.Flags().StringVar(&data, "data", "", "JSON request body")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Overall deadline")
	return cmd
}
