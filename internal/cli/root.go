package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	spidex "github.com/wesleyorama2/spidex/http"
	"github.com/wesleyorama2/spidex/internal/config"
	"github.com/wesleyorama2/spidex/internal/logger"
)

var version = spidex.Version

// errReported marks failures whose details were already written to the output.
var errReported = errors.New("request failed")

// rootOptions holds the persistent flags and the configuration they resolve to.
type rootOptions struct {
	configFile string
	logLevel   string
	userAgent  string
	env        string

	cfg *config.Config
}

// NewRootCommand builds the spidex command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "spidex",
		Short:   "An HTTP client with total, request and response timeouts",
		Version: version,
		Long: `Spidex issues HTTP(S) requests with three independent timeout clocks,
decodes response bodies in legacy charsets and speaks the Hessian 2.0 RPC
envelope. It can also extract values from JSON responses, validate them
against a JSON schema and benchmark an endpoint.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default is ./"+config.DefaultConfigFilename+" or ~/"+config.DefaultConfigFilename+")")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.userAgent, "user-agent", "", "default User-Agent header")
	flags.StringVarP(&opts.env, "env", "e", "", "environment from the config file")

	cmd.AddCommand(
		newGetCommand(opts),
		newPostCommand(opts),
		newPutCommand(opts),
		newDeleteCommand(opts),
		newMethodCommand(opts),
		newHessianCommand(opts),
		newBenchCommand(opts),
	)

	return cmd
}

// load reads and validates the configuration, then applies the process-wide
// settings: log level and default user agent.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	if o.env != "" {
		// Viper lower-cases map keys.
		o.env = strings.ToLower(o.env)
		if err := config.ValidateEnvironment(cfg, o.env); err != nil {
			return err
		}
	}

	logger.SetLevel(cfg.ParsedLogLevel)

	userAgent := cfg.UserAgent
	if cmd.Flags().Changed("user-agent") {
		userAgent = o.userAgent
	}

	if userAgent != "" {
		spidex.SetDefaultUserAgent(userAgent)
	}

	o.cfg = cfg

	return nil
}

// environment returns the environment selected with --env, or a zero
// Environment that resolves URLs unchanged.
func (o *rootOptions) environment() config.Environment {
	if o.env == "" || o.cfg == nil {
		return config.Environment{}
	}

	return o.cfg.Environments[o.env]
}

// client builds an HTTP client from the configuration and the --insecure flag.
func (o *rootOptions) client(insecure bool) *spidex.Client {
	return spidex.NewClient(
		spidex.WithInsecureSkipVerify(insecure || o.cfg.InsecureSkipVerify),
		spidex.WithMaxLogLength(o.cfg.ParsedMaxLogLength),
	)
}

// Execute runs the root command with the process arguments and returns the
// exit code.
func Execute() int {
	return run(NewRootCommand(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(stderr, "Error:", err)
		}

		return 1
	}

	return 0
}
