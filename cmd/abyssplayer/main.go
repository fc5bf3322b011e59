package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/controller"
)

const (
	exitOK           = 0
	exitConfig       = 1
	exitDisconnected = 500
)

func main() {
	os.Exit(exitCode(rootCmd.Execute()))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, controller.ErrDisconnected):
		return exitDisconnected
	default:
		return exitConfig
	}
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stdout && out != os.Stderr}).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Logger()
}

// openLogFile keeps the log off the terminal while the player owns it. The
// log sits next to the session database.
func openLogFile(cfg *config.Config) (*os.File, error) {
	dir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return os.OpenFile(filepath.Join(dir, "abyssplayer.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
