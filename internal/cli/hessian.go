package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/spidex/hessian"
	"github.com/wesleyorama2/spidex/internal/output"
)

// resultData is the structured form of a Hessian reply.
type resultData struct {
	Method     string `json:"method" yaml:"method"`
	URL        string `json:"url" yaml:"url"`
	Result     any    `json:"result" yaml:"result"`
	DurationMs int64  `json:"durationMs" yaml:"durationMs"`
}

type hessianCommand struct {
	root    *rootOptions
	request requestFlags
}

func newHessianCommand(root *rootOptions) *cobra.Command {
	c := &hessianCommand{root: root}

	cmd := &cobra.Command{
		Use:   "hessian URL METHOD [ARG...]",
		Short: "Call a method of a Hessian 2.0 web service",
		Long: `Call a method of a Hessian 2.0 web service over HTTP POST.

Each argument is parsed as a JSON value: integers become 32-bit ints when they
fit and 64-bit ints otherwise, objects become maps and arrays become lists.
An argument that is not valid JSON is sent as a string.`,
		Example: `  spidex hessian http://localhost:8080/test add2 2 3
  spidex hessian http://localhost:8080/test echo '"你好"' --request-timeout 2s
  spidex hessian http://localhost:8080/test save '{"id":1,"tags":["a","b"]}' -o json`,
		Args: cobra.MinimumNArgs(2),
		RunE: c.run,
	}

	c.request.registerCommon(cmd)

	return cmd
}

func (c *hessianCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	env := c.root.environment()
	target := normalizeURL(env.ResolveURL(args[0]))
	method := args[1]

	callArgs := parseHessianArgs(args[2:])

	opts, err := c.request.options(cmd, c.root.cfg, env)
	if err != nil {
		return err
	}

	formatter, noColor := c.request.formatter(out, c.root.cfg)
	client := hessian.NewClient(c.root.client(c.request.insecure))

	start := time.Now()

	result, err := client.Invoke(ctx, target, method, callArgs, opts)
	if err != nil {
		fmt.Fprint(out, formatter.FormatError(err))
		return fmt.Errorf("%w: %w", errReported, err)
	}

	data := resultData{
		Method:     method,
		URL:        target,
		Result:     plainValue(result),
		DurationMs: time.Since(start).Milliseconds(),
	}

	return writeResult(out, c.request.format(c.root.cfg), data, noColor)
}

// parseHessianArgs converts command line arguments into call arguments.
func parseHessianArgs(args []string) []any {
	values := make([]any, 0, len(args))

	for _, arg := range args {
		decoder := json.NewDecoder(strings.NewReader(arg))
		decoder.UseNumber()

		var value any
		if err := decoder.Decode(&value); err != nil || decoder.More() {
			values = append(values, arg)
			continue
		}

		values = append(values, hessianValue(value))
	}

	return values
}

// hessianValue narrows JSON numbers to the integer types Hessian encodes compactly.
func hessianValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				return int32(n)
			}

			return n
		}

		f, _ := v.Float64()

		return f
	case []any:
		for i := range v {
			v[i] = hessianValue(v[i])
		}

		return v
	case map[string]any:
		for key := range v {
			v[key] = hessianValue(v[key])
		}

		return v
	default:
		return v
	}
}

// plainValue rewrites decoded Hessian maps, whose keys may be of any type,
// into string keyed maps that JSON and YAML can marshal.
func plainValue(value any) any {
	switch v := value.(type) {
	case map[any]any:
		result := make(map[string]any, len(v))
		for key, item := range v {
			result[fmt.Sprint(key)] = plainValue(item)
		}

		return result
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, item := range v {
			result[key] = plainValue(item)
		}

		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = plainValue(item)
		}

		return result
	default:
		return v
	}
}

func writeResult(w io.Writer, format output.OutputFormat, data resultData, noColor bool) error {
	switch format {
	case output.FormatJSON:
		encoded, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}

		fmt.Fprintln(w, string(encoded))
	case output.FormatYAML:
		encoded, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}

		fmt.Fprint(w, "---\n"+string(encoded))
	default:
		fmt.Fprintf(w, "%s %s %s (%dms)\n", output.SuccessIcon(noColor), data.Method, data.URL, data.DurationMs)

		encoded, err := json.MarshalIndent(data.Result, "", "  ")
		if err != nil {
			fmt.Fprintf(w, "%v\n", data.Result)
			return nil
		}

		fmt.Fprintln(w, string(encoded))
	}

	return nil
}
