// Command useradmin creates and removes cityweather user accounts.
//
//	useradmin create -username alice -email alice@example.com -password s3cret!
//	useradmin delete -username alice
//
// The database is selected with -driver and -dsn, which default to
// DATABASE_DRIVER and DATABASE_URL (a .env file in the working directory is
// honoured).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kjstillabower/cityweather/internal/observability"
	"github.com/kjstillabower/cityweather/internal/store"
)

const (
	defaultDriver = "sqlite"
	defaultDSN    = "cityweather.db"
)

var errUsage = errors.New("usage: useradmin <create|delete> [flags]")

func main() {
	_ = godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, errUsage)
			os.Exit(2)
		}
		logger.Error("useradmin failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger *zap.Logger) error {
	if len(args) == 0 {
		return errUsage
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	driver := fs.String("driver", envOr("DATABASE_DRIVER", defaultDriver), "database driver (sqlite or postgres)")
	dsn := fs.String("dsn", envOr("DATABASE_URL", defaultDSN), "database DSN or sqlite file path")
	username := fs.String("username", "", "account username")
	email := fs.String("email", "", "account email (create only)")
	password := fs.String("password", "", "account password (create only); falls back to USERADMIN_PASSWORD")

	switch args[0] {
	case "create", "delete":
	default:
		return errUsage
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("%s: -username is required", args[0])
	}

	db, err := store.Open(*driver, *dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := store.Close(db); err != nil {
			logger.Warn("database close", zap.Error(err))
		}
	}()
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	users := store.NewUserStore(db)
	switch args[0] {
	case "create":
		pw := *password
		if pw == "" {
			pw = os.Getenv("USERADMIN_PASSWORD")
		}
		return createUser(ctx, users, *username, *email, pw, out, logger)
	default:
		return deleteUser(ctx, users, *username, out, logger)
	}
}

func createUser(ctx context.Context, users *store.UserStore, username, email, password string, out io.Writer, logger *zap.Logger) error {
	user, err := users.Create(ctx, username, email, password)
	if err != nil {
		return fmt.Errorf("create %q: %w", username, err)
	}
	logger.Info("user created", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	fmt.Fprintf(out, "created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

func deleteUser(ctx context.Context, users *store.UserStore, username string, out io.Writer, logger *zap.Logger) error {
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("delete %q: %w", username, err)
	}
	if err := users.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete %q: %w", username, err)
	}
	logger.Info("user deleted", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	fmt.Fprintf(out, "deleted user %s\n", user.Username)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
