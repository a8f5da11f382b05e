package main

import (
	"os"

	aikefucmder "github.com/xiaomiproject/aikefu/cmd/aikefu"
)

func main() {
	cmd := aikefucmder.NewAikefuCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
