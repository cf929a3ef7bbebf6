package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/spidex/internal/bench"
	"github.com/wesleyorama2/spidex/internal/output"
)

type benchCommand struct {
	root        *rootOptions
	request     requestFlags
	method      string
	requests    int
	concurrency int
	rate        float64
}

func newBenchCommand(root *rootOptions) *cobra.Command {
	c := &benchCommand{root: root}

	cmd := &cobra.Command{
		Use:   "bench URL",
		Short: "Benchmark an endpoint and report latency percentiles",
		Long: `Issue the same request repeatedly from a pool of workers. Every request
runs with the configured timeouts; failures are counted by kind and latencies
of successful requests are reported as percentiles.`,
		Example: `  spidex bench http://localhost:8080/health -n 1000 -c 50
  spidex bench http://localhost:8080/login -X POST --form user=fake -n 200 --request-timeout 500ms
  spidex bench http://localhost:8080/search?q=go -n 300 -c 20 --rate 50`,
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}

	c.request.register(cmd)

	flags := cmd.Flags()
	flags.StringVarP(&c.method, "method", "X", "GET", "HTTP method")
	flags.IntVarP(&c.requests, "requests", "n", 100, "total number of requests")
	flags.IntVarP(&c.concurrency, "concurrency", "c", 10, "number of concurrent workers")
	flags.Float64VarP(&c.rate, "rate", "r", 0, "maximum requests started per second (0 is unlimited)")

	return cmd
}

func (c *benchCommand) run(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	env := c.root.environment()

	opts, err := c.request.options(cmd, c.root.cfg, env)
	if err != nil {
		return err
	}

	plan := bench.Plan{
		Method:      c.method,
		URL:         normalizeURL(env.ResolveURL(args[0])),
		Options:     opts,
		Requests:    c.requests,
		Concurrency: c.concurrency,
		Rate:        c.rate,
	}

	summary, err := bench.NewRunner(c.root.client(c.request.insecure)).Run(cmd.Context(), plan)
	if err != nil {
		return err
	}

	noColor := output.ShouldDisableColor(out, c.request.noColor || c.root.cfg.NoColor)

	return writeSummary(out, c.request.format(c.root.cfg), plan, summary, noColor)
}

func writeSummary(w io.Writer, format output.OutputFormat, plan bench.Plan, summary *bench.Summary, noColor bool) error {
	switch format {
	case output.FormatJSON:
		encoded, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}

		fmt.Fprintln(w, string(encoded))

		return nil
	case output.FormatYAML:
		encoded, err := yaml.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}

		fmt.Fprint(w, "---\n"+string(encoded))

		return nil
	}

	icon := output.SuccessIcon(noColor)
	if summary.Failed > 0 {
		icon = output.WarningIcon(noColor)
	}

	latency := summary.Latency

	fmt.Fprintf(w, "%s %s %s\n", icon, strings.ToUpper(plan.Method), plan.URL)
	fmt.Fprintf(w, "  Requests:     %s (%s succeeded, %s failed)\n",
		humanize.Comma(summary.Total), humanize.Comma(summary.Succeeded), humanize.Comma(summary.Failed))
	fmt.Fprintf(w, "  Duration:     %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Throughput:   %.1f req/s\n", summary.Throughput)
	fmt.Fprintf(w, "  Transferred:  %s\n", humanize.Bytes(uint64(max(summary.Bytes, 0))))
	fmt.Fprintf(w, "  Latency:      min %s, p50 %s, p90 %s, p95 %s, p99 %s, max %s\n",
		latency.Min, latency.P50, latency.P90, latency.P95, latency.P99, latency.Max)

	if len(summary.Statuses) > 0 {
		codes := make([]int, 0, len(summary.Statuses))
		for code := range summary.Statuses {
			codes = append(codes, code)
		}

		sort.Ints(codes)

		parts := make([]string, 0, len(codes))
		for _, code := range codes {
			parts = append(parts, fmt.Sprintf("%d=%d", code, summary.Statuses[code]))
		}

		fmt.Fprintf(w, "  Status codes: %s\n", strings.Join(parts, ", "))
	}

	if len(summary.Errors) > 0 {
		kinds := make([]string, 0, len(summary.Errors))
		for kind := range summary.Errors {
			kinds = append(kinds, kind)
		}

		sort.Strings(kinds)

		parts := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, summary.Errors[kind]))
		}

		fmt.Fprintf(w, "  Errors:       %s\n", strings.Join(parts, ", "))
	}

	return nil
}
