// Command boardhousectl operates the emulated backend from a terminal: it
// reads and writes documents, runs queries, manages demo identities and
// uploads blobs against the configured backing.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"boardhouse/internal/app"
	"boardhouse/internal/config"
	"boardhouse/internal/docstore"
	"boardhouse/internal/platform"
	"boardhouse/internal/tree"
)

var exitFunc = os.Exit

func main() {
	root := newRootCmd(os.LookupEnv)
	if err := root.ExecuteContext(context.Background()); err != nil {
		exitFunc(1)
	}
}

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	trace      bool
	metrics    bool
	lookupEnv  func(string) (string, bool)
	opts       []platform.Option
}

func newRootCmd(lookupEnv func(string) (string, bool), opts ...platform.Option) *cobra.Command {
	c := &cli{lookupEnv: lookupEnv, opts: opts}
	root := &cobra.Command{
		Use:          "boardhousectl",
		Short:        "Operate the boardhouse emulated backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (BOARDHOUSE_* variables override it)")
	root.PersistentFlags().BoolVar(&c.trace, "trace", false, "write one JSON span per operation to stderr")
	root.PersistentFlags().BoolVar(&c.metrics, "metrics", false, "dump operation metrics in Prometheus text format to stderr")
	root.AddCommand(
		c.seedCmd(),
		c.getCmd(),
		c.setCmd(),
		c.updateCmd(),
		c.removeCmd(),
		c.pushCmd(),
		c.queryCmd(),
		c.registerCmd(),
		c.signInCmd(),
		c.signOutCmd(),
		c.whoamiCmd(),
		c.uploadCmd(),
		c.urlCmd(),
	)
	return root
}

// run opens the app for one command and closes it afterwards.
func (c *cli) run(cmd *cobra.Command, seed bool, fn func(ctx context.Context, a *app.App) error) (err error) {
	cfg, err := config.LoadWithEnv(c.configPath, c.lookupEnv)
	if err != nil {
		return err
	}
	if !seed {
		cfg.Seed = false
	}
	opts := append([]platform.Option(nil), c.opts...)
	if c.trace {
		opts = append(opts, platform.WithTracer(platform.NewJSONTracer(cmd.ErrOrStderr())))
	}
	var reg *prometheus.Registry
	if c.metrics {
		reg = prometheus.NewRegistry()
		rec, err := platform.NewPrometheusMetricsRecorder(reg, "")
		if err != nil {
			return err
		}
		opts = append(opts, platform.WithMetricsRecorder(rec))
	}
	ctx := cmd.Context()
	a, err := app.Open(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	if err := fn(ctx, a); err != nil {
		return err
	}
	if reg != nil {
		return writeMetrics(cmd.ErrOrStderr(), reg)
	}
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func parseValue(raw string) (tree.Value, error) {
	v, err := tree.Parse([]byte(raw))
	if err != nil {
		return tree.Value{}, fmt.Errorf("value must be JSON: %w", err)
	}
	return v, nil
}

func printSnapshot(w io.Writer, snap docstore.Snapshot) error {
	if !snap.Exists() {
		_, err := fmt.Fprintln(w, "null")
		return err
	}
	return printJSON(w, snap.Val())
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
