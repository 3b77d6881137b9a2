package main

import (
	"os"

	"cbt-exam-runner/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
