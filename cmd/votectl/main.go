package main

import (
	"os"

	"github.com/emilythestrangee/reddit-clone/votes/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
