package main

import (
	"os"

	"github.com/fefferico/quiz-app-sub000/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
