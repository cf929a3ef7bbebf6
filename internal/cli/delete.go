package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

func newDeleteCommand(root *rootOptions) *cobra.Command {
	c := &requestCommand{root: root}

	cmd := &cobra.Command{
		Use:   "delete URL",
		Short: "Make a DELETE request to the specified URL",
		Example: `  spidex delete https://httpbin.org/delete
  spidex delete https://api.example.com/users/1 -H "Authorization: Bearer token"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, http.MethodDelete, args[0])
		},
	}

	c.register(cmd)

	return cmd
}
