package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"rdb/dbcli"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})))
	dbcli.Execute()
}
