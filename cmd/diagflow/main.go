package main

import (
	"context"
	"fmt"
	"os"

	"diagflow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "diagflow:", err)
		os.Exit(1)
	}
}
