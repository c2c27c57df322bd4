package main

import (
	"os"

	"github.com/bryanwahyu/secscan/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
