package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

func newGetCommand(root *rootOptions) *cobra.Command {
	c := &requestCommand{root: root}

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Make a GET request to the specified URL",
		Example: `  spidex get https://httpbin.org/get
  spidex get http://example.cn/search?q=go --charset gbk -v
  spidex get https://api.example.com/users --extract name=$.data[0].name`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, http.MethodGet, args[0])
		},
	}

	c.register(cmd)

	return cmd
}
