package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFileVar overrides the --env flag when set.
const EnvFileVar = "TRANSLATOR_ENV_FILE"

// EnvLoader loads an optional .env file selected by flag or environment.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}

	value := fs.String("env", defaultPath, "Path to an optional .env file")
	return &EnvLoader{
		value:       value,
		defaultPath: defaultPath,
	}
}

// Load applies the resolved .env file. Variables already present in the process environment
// win over the file. A missing default file is not an error; a missing explicit file is.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	if custom := strings.TrimSpace(os.Getenv(EnvFileVar)); custom != "" {
		if err := godotenv.Load(custom); err != nil {
			return "", fmt.Errorf("load %s=%s: %w", EnvFileVar, custom, err)
		}
		return custom, nil
	}

	requested := l.defaultPath
	if l.value != nil && strings.TrimSpace(*l.value) != "" {
		requested = strings.TrimSpace(*l.value)
	}

	if err := godotenv.Load(requested); err != nil {
		if requested == l.defaultPath && os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("load env file %s: %w", requested, err)
	}
	return requested, nil
}
