package browser

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Snapshot is a private copy of a browser's SQLite cookie database. Reading
// the copy keeps the import away from the lock the running browser holds.
type Snapshot struct {
	// Path is the copied database, ready to open.
	Path string
	// Companions lists the -wal and -shm files copied next to it.
	Companions []string

	dir    string
	logger *slog.Logger
}

// SafeCopy snapshots srcPath and any -wal and -shm companions into a fresh
// temporary directory. Close the snapshot to remove it.
func SafeCopy(srcPath string, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "cookie file not found"), "path", srcPath)
	}
	if info.IsDir() {
		return nil, zerr.With(zerr.New("expected a cookie file, got a directory"), "path", srcPath)
	}
	if info.Size() == 0 {
		return nil, zerr.With(zerr.New("cookie file is empty"), "path", srcPath)
	}

	dir, err := os.MkdirTemp("", "cookiesweep-import-*")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create snapshot directory")
	}

	snap := &Snapshot{
		Path:   filepath.Join(dir, filepath.Base(srcPath)),
		dir:    dir,
		logger: logger,
	}
	if err := copyFile(srcPath, snap.Path); err != nil {
		snap.Close()
		return nil, err
	}

	// A missing companion only means the browser has no open write-ahead log.
	for _, suffix := range []string{"-wal", "-shm"} {
		companion := srcPath + suffix
		if _, err := os.Stat(companion); err != nil {
			continue
		}
		dst := snap.Path + suffix
		if err := copyFile(companion, dst); err != nil {
			logger.Warn("skipping cookie database companion", "path", companion, "error", err)
			continue
		}
		snap.Companions = append(snap.Companions, dst)
	}

	logger.Debug("cookie database snapshot taken",
		"source", srcPath,
		"snapshot", snap.Path,
		"companions", len(snap.Companions),
		"bytes", info.Size(),
	)
	return snap, nil
}

// Close removes the snapshot directory.
func (s *Snapshot) Close() {
	if err := os.RemoveAll(s.dir); err != nil {
		s.logger.Warn("failed to remove cookie database snapshot", "dir", s.dir, "error", err)
		return
	}
	s.logger.Debug("cookie database snapshot removed", "dir", s.dir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open cookie file"), "path", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create snapshot file"), "path", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return zerr.With(zerr.Wrap(err, "failed to copy cookie file"), "path", src)
	}
	return out.Close()
}
