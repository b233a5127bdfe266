package pipeline

import (
	"log/slog"

	"git.home.luguber.info/inful/catalogbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/logfields"
	"git.home.luguber.info/inful/catalogbuilder/internal/storage"
)

// Clean removes the generated catalog and the build state, so the next
// build starts from nothing.
func Clean(cfg *config.Config, fsys storage.FileSystem, logger *slog.Logger) error {
	if fsys == nil {
		fsys = storage.NewOSFileSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}

	targets := []string{cfg.Output.Directory, cfg.Output.StateFile}
	if cfg.Output.StateBackend == config.StateBackendSQLite {
		targets = append(targets, cfg.Output.StateFile+"-wal", cfg.Output.StateFile+"-shm")
	} else {
		targets = append(targets, cfg.Output.StateFile+".tmp")
	}
	for _, target := range targets {
		if !storage.Exists(fsys, target) {
			continue
		}
		if err := fsys.RemoveAll(target); err != nil {
			return ferrors.FileSystemError("failed to remove build output").WithCause(err).
				WithContext("path", target).Build()
		}
		logger.Info("Removed", logfields.Path(target))
	}
	return nil
}
