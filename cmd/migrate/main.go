package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/saeid-a/FitOnboardBack/internal/logger"
	"go.uber.org/zap"
)

func main() {
	zlog := logger.New(logger.Options{Level: os.Getenv("LOG_LEVEL")})
	defer func() { _ = zlog.Sync() }()

	if err := godotenv.Load(); err != nil {
		zlog.Info("No .env file found")
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		zlog.Fatal("DB_URL environment variable is required")
	}

	migrationsPath, err := findMigrations(os.Getenv("MIGRATIONS_DIR"))
	if err != nil {
		zlog.Fatal("Locate migrations", zap.Error(err))
	}

	m, err := migrate.New("file://"+filepath.ToSlash(migrationsPath), dbURL)
	if err != nil {
		zlog.Fatal("Open migrations", zap.Error(err))
	}
	defer func() { _, _ = m.Close() }()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	if err := run(m, cmd, os.Args[2:]); err != nil {
		zlog.Fatal("Migration failed", zap.String("command", cmd), zap.Error(err))
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		zlog.Fatal("Read migration version", zap.Error(err))
	}
	zlog.Info("Migration complete", zap.String("command", cmd), zap.Uint("version", version), zap.Bool("dirty", dirty))
}

func run(m *migrate.Migrate, cmd string, args []string) error {
	var err error
	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "version":
		return nil
	case "force":
		if len(args) != 1 {
			return fmt.Errorf("force needs a version")
		}
		version, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], convErr)
		}
		return m.Force(version)
	default:
		return fmt.Errorf("unknown command %q (use up, down, version or force N)", cmd)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// findMigrations returns dir when set, otherwise the nearest "migrations"
// directory walking up from the working directory and the executable.
func findMigrations(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		for current := cwd; ; current = filepath.Dir(current) {
			candidates = append(candidates, filepath.Join(current, "migrations"))
			if filepath.Dir(current) == current || len(candidates) == 6 {
				break
			}
		}
	}
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append(candidates,
			filepath.Join(exeDir, "migrations"),
			filepath.Join(exeDir, "..", "migrations"),
		)
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}
	}
	return "", errors.New("migrations directory not found")
}
