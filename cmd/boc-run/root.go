// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/ic-slurp/boc"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Config is boc-run's flag set, following the same flagSet-backed,
// Adjust()-validated shape the teacher's dmctl CLI uses.
type Config struct {
	flagSet *pflag.FlagSet

	RunOnly     string
	Workers     int
	Seed        int64
	Systematic  bool
	MetricsAddr string
}

func defineFlagSet(fs *pflag.FlagSet) {
	fs.String("ro", "", "run only the named scenario (default: run all)")
	fs.Int("workers", 4, "worker goroutines for the parallel scheduler (ignored under --systematic)")
	fs.Int64("seed", 1, "interleaving seed for --systematic")
	fs.Bool("systematic", false, "use the deterministic, seed-controlled scheduler instead of the parallel pool")
	fs.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090) for the duration of the run")
}

func (c *Config) fromFlagSet() error {
	fs := c.flagSet
	var err error
	if c.RunOnly, err = fs.GetString("ro"); err != nil {
		return errors.Trace(err)
	}
	if c.Workers, err = fs.GetInt("workers"); err != nil {
		return errors.Trace(err)
	}
	if c.Seed, err = fs.GetInt64("seed"); err != nil {
		return errors.Trace(err)
	}
	if c.Systematic, err = fs.GetBool("systematic"); err != nil {
		return errors.Trace(err)
	}
	if c.MetricsAddr, err = fs.GetString("metrics-addr"); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (c *Config) Adjust() error {
	if err := c.fromFlagSet(); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return errors.Errorf("invalid --workers: %d", c.Workers)
	}
	return nil
}

// NewRootCmd builds the boc-run command: it selects and runs one or all of
// the bundled scenario programs (§2A's "CLI test harness").
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "boc-run",
		Short:         "Run behaviour-oriented-concurrency scenario programs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defineFlagSet(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg := &Config{flagSet: cmd.Flags()}
		if err := cfg.Adjust(); err != nil {
			return err
		}
		return runScenarios(cmd.Context(), cfg)
	}
	return cmd
}

func runScenarios(ctx context.Context, cfg *Config) error {
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	names := scenarioNames()
	if cfg.RunOnly != "" {
		if _, ok := scenarios[cfg.RunOnly]; !ok {
			return errors.Errorf("unknown scenario %q, known: %s", cfg.RunOnly, strings.Join(names, ", "))
		}
		names = []string{cfg.RunOnly}
	}

	for _, name := range names {
		log.Info("running scenario", zap.String("scenario", name), zap.Bool("systematic", cfg.Systematic))
		entry := scenarios[name]
		var err error
		if cfg.Systematic {
			err = boc.RunSystematic(ctx, cfg.Seed, entry)
		} else {
			err = boc.Run(ctx, cfg.Workers, entry)
		}
		if err != nil {
			return errors.Annotatef(err, "scenario %q failed", name)
		}
	}
	return nil
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
