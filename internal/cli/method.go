package cli

import (
	"github.com/spf13/cobra"
)

func newMethodCommand(root *rootOptions) *cobra.Command {
	c := &requestCommand{root: root}

	cmd := &cobra.Command{
		Use:   "method VERB URL",
		Short: "Make a request with an arbitrary HTTP method",
		Long: `Make a request with an arbitrary HTTP method token. The token is
upper-cased; only GET requests are sent without a body.`,
		Example: `  spidex method PATCH https://httpbin.org/patch -d '{"op":"replace"}'
  spidex method HEAD https://example.com -v`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args[0], args[1])
		},
	}

	c.register(cmd)

	return cmd
}
