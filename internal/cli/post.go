package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

func newPostCommand(root *rootOptions) *cobra.Command {
	c := &requestCommand{root: root}

	cmd := &cobra.Command{
		Use:   "post URL",
		Short: "Make a POST request to the specified URL",
		Example: `  spidex post https://httpbin.org/post -d '{"name":"spidex"}' -H "Content-Type: application/json"
  spidex post https://httpbin.org/post --form username=fake --form login="Sign In"
  spidex post https://example.com/upload --data-file payload.bin --response-timeout 5s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, http.MethodPost, args[0])
		},
	}

	c.register(cmd)

	return cmd
}
