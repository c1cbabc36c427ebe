package main

import (
	"log/slog"
	"os"

	"github.com/moonkyuu/cinebook/internal/gateway"
)

func main() {
	err := gateway.Run()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error(err.Error())
		os.Exit(1)
	}
}
