package cli

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	spidex "github.com/wesleyorama2/spidex/http"
	"github.com/wesleyorama2/spidex/internal/config"
	"github.com/wesleyorama2/spidex/internal/inspect"
	"github.com/wesleyorama2/spidex/internal/logger"
	"github.com/wesleyorama2/spidex/internal/output"
)

var (
	// ErrInvalidHeader indicates a header flag that is not "Name: value".
	ErrInvalidHeader = errors.New("invalid header")
	// ErrInvalidFormField indicates a form flag that is not "key=value".
	ErrInvalidFormField = errors.New("invalid form field")
	// ErrConflictingBody indicates more than one of --data, --data-file and --form.
	ErrConflictingBody = errors.New("only one of --data, --data-file and --form may be used")
	// ErrNegativeTimeout indicates a timeout flag below zero.
	ErrNegativeTimeout = errors.New("timeouts must not be negative")
	// ErrSchemaMismatch indicates a response body that failed --schema validation.
	ErrSchemaMismatch = errors.New("response does not match schema")
)

// requestFlags are the flags shared by every command that issues a request.
type requestFlags struct {
	headers         []string
	data            string
	dataFile        string
	form            []string
	charset         string
	timeout         time.Duration
	requestTimeout  time.Duration
	responseTimeout time.Duration
	insecure        bool
	verbose         bool
	noColor         bool
	output          string
}

// responseFlags inspect a buffered response.
type responseFlags struct {
	cookies bool
	extract []string
	schema  string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	f.registerCommon(cmd)

	flags := cmd.Flags()
	flags.StringVarP(&f.data, "data", "d", "", "request body")
	flags.StringVar(&f.dataFile, "data-file", "", "read the request body from a file and send it verbatim")
	flags.StringArrayVar(&f.form, "form", nil, "form field key=value, url-encoded in --charset (can be used multiple times)")
	flags.StringVar(&f.charset, "charset", "", "charset used to encode the form and decode the response (utf8, gbk, binary, ...)")
}

// registerCommon registers every request flag except the body and charset ones.
func (f *requestFlags) registerCommon(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.headers, "header", "H", nil, "HTTP header 'Name: value' (can be used multiple times)")
	flags.DurationVarP(&f.timeout, "timeout", "t", 0, "total timeout (0 disables it)")
	flags.DurationVar(&f.requestTimeout, "request-timeout", 0, "timeout until response headers arrive (0 disables it)")
	flags.DurationVar(&f.responseTimeout, "response-timeout", 0, "timeout from response headers to the end of the body (0 disables it)")
	flags.BoolVarP(&f.insecure, "insecure", "k", false, "skip TLS certificate verification")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "show request details, response headers and timing")
	flags.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	flags.StringVarP(&f.output, "output", "o", "", "output format (text, json, yaml)")
}

func (f *responseFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&f.cookies, "cookies", false, "print the Set-Cookie pairs as a Cookie header value")
	flags.StringArrayVar(&f.extract, "extract", nil, "extract a JSON value, [name=]$.path (can be used multiple times)")
	flags.StringVar(&f.schema, "schema", "", "validate the JSON response body against a JSON schema file")
}

// options merges configuration, environment and flags into request options.
// Flags win over the environment, which wins over the configuration file.
func (f *requestFlags) options(cmd *cobra.Command, cfg *config.Config, env config.Environment) (*spidex.Options, error) {
	header, err := parseHeaders(f.headers)
	if err != nil {
		return nil, err
	}

	opts := &spidex.Options{
		Header: config.MergeHeaders(
			config.ProcessEnvironmentInMap(cfg.Headers, env.Variables),
			config.ProcessEnvironmentInMap(env.Headers, env.Variables),
			config.ProcessEnvironmentInMap(header, env.Variables),
		),
		Charset:         cfg.Charset,
		Timeout:         cfg.ParsedTimeout,
		RequestTimeout:  cfg.ParsedRequestTimeout,
		ResponseTimeout: cfg.ParsedResponseTimeout,
	}

	changed := cmd.Flags().Changed

	if changed("charset") {
		opts.Charset = f.charset
	}

	if changed("timeout") {
		opts.Timeout = f.timeout
	}

	if changed("request-timeout") {
		opts.RequestTimeout = f.requestTimeout
	}

	if changed("response-timeout") {
		opts.ResponseTimeout = f.responseTimeout
	}

	if opts.Timeout < 0 || opts.RequestTimeout < 0 || opts.ResponseTimeout < 0 {
		return nil, ErrNegativeTimeout
	}

	opts.Data, err = f.body(env.Variables)
	if err != nil {
		return nil, err
	}

	return opts, nil
}

// body resolves the request data: a string for --data, raw bytes for
// --data-file and url.Values for --form.
func (f *requestFlags) body(variables map[string]string) (any, error) {
	sources := 0
	for _, set := range []bool{f.data != "", f.dataFile != "", len(f.form) > 0} {
		if set {
			sources++
		}
	}

	if sources > 1 {
		return nil, ErrConflictingBody
	}

	switch {
	case f.data != "":
		return config.ProcessEnvironment(f.data, variables), nil
	case f.dataFile != "":
		content, err := os.ReadFile(f.dataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}

		return content, nil
	case len(f.form) > 0:
		return parseForm(f.form, variables)
	default:
		return nil, nil
	}
}

// formatter picks the output format from the flag or the configuration.
func (f *requestFlags) formatter(w io.Writer, cfg *config.Config) (output.FormatProvider, bool) {
	noColor := output.ShouldDisableColor(w, f.noColor || cfg.NoColor)

	return output.GetFormatter(f.format(cfg), f.verbose, noColor), noColor
}

func (f *requestFlags) format(cfg *config.Config) output.OutputFormat {
	if f.output != "" {
		return output.OutputFormat(strings.ToLower(f.output))
	}

	return output.OutputFormat(strings.ToLower(cfg.Output))
}

// parseHeaders turns "Name: value" flags into a header map.
func parseHeaders(headers []string) (map[string]string, error) {
	result := make(map[string]string, len(headers))

	for _, header := range headers {
		name, value, ok := strings.Cut(header, ":")
		name = strings.TrimSpace(name)

		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, header)
		}

		result[name] = strings.TrimSpace(value)
	}

	return result, nil
}

// parseForm turns "key=value" flags into form values. Repeated keys keep every value.
func parseForm(fields []string, variables map[string]string) (url.Values, error) {
	form := make(url.Values, len(fields))

	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormField, field)
		}

		form.Add(key, config.ProcessEnvironment(value, variables))
	}

	return form, nil
}

// normalizeURL defaults a scheme-less target to http.
func normalizeURL(target string) string {
	if target == "" || strings.Contains(target, "://") {
		return target
	}

	return "http://" + target
}

// parseExtractions maps --extract flags to names and JSONPath expressions.
// A flag without "name=" is named after its path.
func parseExtractions(flags []string) map[string]string {
	paths := make(map[string]string, len(flags))

	for _, flag := range flags {
		name, path, ok := strings.Cut(flag, "=")
		if !ok || strings.HasPrefix(flag, "$") {
			name, path = flag, flag
		}

		paths[strings.TrimSpace(name)] = strings.TrimSpace(path)
	}

	return paths
}

// requestCommand runs a single request and prints it with the chosen formatter.
type requestCommand struct {
	root     *rootOptions
	request  requestFlags
	response responseFlags
}

func (c *requestCommand) register(cmd *cobra.Command) {
	c.request.register(cmd)
	c.response.register(cmd)
}

func (c *requestCommand) run(cmd *cobra.Command, method, target string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	env := c.root.environment()
	target = normalizeURL(env.ResolveURL(target))

	opts, err := c.request.options(cmd, c.root.cfg, env)
	if err != nil {
		return err
	}

	formatter, noColor := c.request.formatter(out, c.root.cfg)

	desc, err := spidex.BuildRequest(method, target, opts)
	if err != nil {
		fmt.Fprint(out, formatter.FormatError(err))
		return fmt.Errorf("%w: %w", errReported, err)
	}

	fmt.Fprint(out, formatter.FormatRequest(desc))

	logger.DebugKV(ctx, "issuing request", "method", desc.Method, "url", desc.URL())

	resp, err := c.root.client(c.request.insecure).Do(ctx, method, target, opts)
	if err != nil {
		fmt.Fprint(out, formatter.FormatError(err))
		return fmt.Errorf("%w: %w", errReported, err)
	}

	fmt.Fprint(out, formatter.FormatResponse(resp))

	return c.inspectResponse(out, resp, noColor)
}

// inspectResponse applies the response flags to resp.
func (c *requestCommand) inspectResponse(w io.Writer, resp *spidex.Response, noColor bool) error {
	if c.response.cookies {
		fmt.Fprintf(w, "Cookie: %s\n", resp.Cookies())
	}

	var errs []error

	if len(c.response.extract) > 0 {
		values, err := inspect.ExtractMultiple(resp.Content, parseExtractions(c.response.extract))

		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			fmt.Fprintf(w, "%s %s = %s\n", output.SuccessIcon(noColor), name, values[name])
		}

		if err != nil {
			fmt.Fprintf(w, "%s %v\n", output.ErrorIcon(noColor), err)
			errs = append(errs, err)
		}
	}

	if c.response.schema != "" {
		if err := c.validateSchema(w, resp.Content, noColor); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", errReported, err)
	}

	return nil
}

func (c *requestCommand) validateSchema(w io.Writer, content []byte, noColor bool) error {
	document, err := os.ReadFile(c.response.schema)
	if err != nil {
		fmt.Fprintf(w, "%s failed to read schema: %v\n", output.ErrorIcon(noColor), err)
		return err
	}

	schema, err := inspect.CompileSchema(document)
	if err != nil {
		fmt.Fprintf(w, "%s %v\n", output.ErrorIcon(noColor), err)
		return err
	}

	err = schema.Validate(content)
	if err == nil {
		fmt.Fprintf(w, "%s response matches schema\n", output.SuccessIcon(noColor))
		return nil
	}

	var violations inspect.ValidationErrors
	if errors.As(err, &violations) {
		fmt.Fprintf(w, "%s response does not match schema:\n", output.ErrorIcon(noColor))

		for _, violation := range violations {
			fmt.Fprintf(w, "  - %s\n", violation)
		}

		return fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}

	fmt.Fprintf(w, "%s %v\n", output.ErrorIcon(noColor), err)

	return err
}
