package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

func newPutCommand(root *rootOptions) *cobra.Command {
	c := &requestCommand{root: root}

	cmd := &cobra.Command{
		Use:     "put URL",
		Short:   "Make a PUT request to the specified URL",
		Example: `  spidex put https://httpbin.org/put -d '{"id":1}' -H "Content-Type: application/json"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, http.MethodPut, args[0])
		},
	}

	c.register(cmd)

	return cmd
}
