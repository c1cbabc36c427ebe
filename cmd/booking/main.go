package main

import (
	"log/slog"
	"os"

	"github.com/moonkyuu/cinebook/internal/booking"
)

func main() {
	err := booking.Run()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error(err.Error())
		os.Exit(1)
	}
}
