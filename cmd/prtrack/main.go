package main

import (
	"log/slog"
	"os"

	// Static TLS root fallback so the binary works on hosts without a
	// usable system certificate store.
	_ "golang.org/x/crypto/x509roots/fallback"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	Execute()
}
