package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
)

// EnvSelector names the variable selecting an extra .env.<name> file.
const EnvSelector = "CATALOGBUILDER_ENV"

// envFiles lists the environment files looked up next to the configuration,
// in load order. Earlier files win because godotenv.Load never overrides
// variables that are already set.
func envFiles(dir string) []string {
	files := []string{filepath.Join(dir, ".env.local")}
	if name := os.Getenv(EnvSelector); name != "" {
		files = append(files, filepath.Join(dir, ".env."+name))
	}
	return append(files, filepath.Join(dir, ".env"))
}

// loadEnvFiles loads the environment files of dir that exist. Variables
// already present in the process environment keep their value.
func loadEnvFiles(dir string) error {
	for _, f := range envFiles(dir) {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to load environment file").
				Fatal().WithContext("path", f).Build()
		}
	}
	return nil
}
