package main

import (
	"context"
	"os"

	"github.com/wafers3/transformers/cmd"
)

func main() {
	if err := cmd.NewCLI().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
