package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
)

// LoadEnvFile loads the optional .env file in dir. Variables already set in
// the process environment win. A missing file is not an error.
func LoadEnvFile(dir string) error {
	path := filepath.Join(dir, EnvFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%s: %w", ErrEnvLoad, err)
	}

	slog.Debug(MsgEnvLoaded,
		LogKeyComponent, CompConfig,
		LogKeyPath, path)
	return nil
}

// ResolveAPIKey returns the AI service key from the environment, falling
// back to the OS keyring entry stored under KeyringService/KeyringUser.
func ResolveAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		return key, nil
	}

	key, err := keyring.Get(KeyringService, KeyringUser)
	if err != nil {
		slog.Debug(MsgKeyringFail,
			LogKeyComponent, CompConfig,
			LogKeyError, err)
		return "", fmt.Errorf("%s: %w", ErrAPIKeyMissing, err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New(ErrAPIKeyMissing)
	}
	return key, nil
}
