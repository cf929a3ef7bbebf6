package main

import (
	"os"

	"github.com/wesleyorama2/spidex/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
