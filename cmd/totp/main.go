// Command totp prints or logs the current code for the provisioned secret.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"seedkeeper/internal/config"
	"seedkeeper/internal/models"
	"seedkeeper/internal/storage"
	"seedkeeper/internal/totp"

	"github.com/urfave/cli/v3"
)

const lineLayout = "2006-01-02 15:04:05"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		slog.Error("totp failed", "error", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "totp",
		Usage: "Derive TOTP codes from the provisioned secret",
		Commands: []*cli.Command{
			{
				Name:      "code",
				Usage:     "Print the current code for a 64-hex secret",
				ArgsUsage: "<secret>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: totp code <secret>")
					}
					return printCode(cmd.Root().Writer, cmd.Args().First(), time.Now())
				},
			},
			{
				Name:  "log",
				Usage: "Append the current code to a log file, once or repeatedly",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "store",
						Usage: "Secret store backend: 'file' or 'bbolt' (default SEED_STORE)",
					},
					&cli.StringFlag{
						Name:  "seed-file",
						Usage: "Secret file for the file backend (default SEED_FILE)",
					},
					&cli.StringFlag{
						Name:  "seed-db",
						Usage: "Database for the bbolt backend (default SEED_DB)",
					},
					&cli.StringFlag{
						Name:  "log-file",
						Usage: "File the code lines are appended to (default CODE_LOG_FILE)",
					},
					&cli.DurationFlag{
						Name:  "every",
						Value: 0,
						Usage: "Repeat interval; 0 logs once and exits",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					return newCodeLogger(cfg, cmd).Run(ctx, cmd.Duration("every"))
				},
			},
		},
	}
}

func printCode(w io.Writer, hex string, now time.Time) error {
	secret, err := models.ParseSecret(hex)
	if err != nil {
		return err
	}
	code, err := totp.CodeAt(secret, now)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, code)
	return err
}

// newCodeLogger reads the secret from the same store as the server. Flags
// given on the command line take precedence over the configuration.
func newCodeLogger(cfg *config.Config, cmd *cli.Command) *codeLogger {
	l := &codeLogger{
		store:    cfg.SeedStore,
		seedFile: cfg.SeedFile,
		seedDB:   cfg.SeedDB,
		logFile:  cfg.CodeLogFile,
		now:      time.Now,
	}
	if cmd.IsSet("store") {
		l.store = strings.ToLower(cmd.String("store"))
	}
	if cmd.IsSet("seed-file") {
		l.seedFile = cmd.String("seed-file")
	}
	if cmd.IsSet("seed-db") {
		l.seedDB = cmd.String("seed-db")
	}
	if cmd.IsSet("log-file") {
		l.logFile = cmd.String("log-file")
	}
	return l
}

type codeLogger struct {
	store    string
	seedFile string
	seedDB   string
	logFile  string
	now      func() time.Time
}

// Run logs once when every is zero. Otherwise it logs on every tick until
// ctx is done, reporting failures without stopping.
func (l *codeLogger) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		return l.logOnce()
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := l.logOnce(); err != nil {
			slog.Error("failed to log code", "kind", models.Kind(err), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (l *codeLogger) logOnce() error {
	secrets, err := storage.Open(l.store, l.seedFile, l.seedDB)
	if err != nil {
		return err
	}
	defer func() { _ = secrets.Close() }()

	secret, err := secrets.Load()
	if err != nil {
		return fmt.Errorf("load secret: %w", err)
	}

	now := l.now().UTC()
	code, err := totp.CodeAt(secret, now)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(l.logFile), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(f, "%s - 2FA Code: %s\n", now.Format(lineLayout), code)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
