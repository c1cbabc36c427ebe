package main

import (
	"log/slog"
	"os"

	"github.com/moonkyuu/cinebook/internal/showtime"
)

func main() {
	err := showtime.Run()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error(err.Error())
		os.Exit(1)
	}
}
