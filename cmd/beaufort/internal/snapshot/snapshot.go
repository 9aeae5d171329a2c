// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot captures and restores a small named set of files so
// that mutating benchmark cases leave a fixture project exactly as they
// found it.
//
// A Snapshot records content for tracked files that exist and records
// absence for tracked files that do not, so restoring removes artifacts
// a run created (a freshly written lock file, for example) instead of
// merely overwriting content.
package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// =============================================================================
// Errors
// =============================================================================

// Sentinel errors for snapshot operations.
var (
	// ErrNilSnapshot indicates Restore was called without a snapshot.
	ErrNilSnapshot = errors.New("snapshot must not be nil")

	// ErrCaptureRead indicates a tracked file existed but could not be read.
	ErrCaptureRead = errors.New("snapshot capture read failed")

	// ErrRestoreWrite indicates a tracked file could not be written back.
	ErrRestoreWrite = errors.New("snapshot restore write failed")

	// ErrRestoreDelete indicates a file recorded absent could not be removed.
	ErrRestoreDelete = errors.New("snapshot restore delete failed")
)

// =============================================================================
// Snapshot
// =============================================================================

// defaultFileMode is used when a captured mode is unavailable.
const defaultFileMode = os.FileMode(0644)

// FileState is the captured state of one tracked file.
//
// Thread Safety: Treat as immutable after capture.
type FileState struct {
	// Present is true when the file existed at capture time.
	Present bool

	// Data is the captured content. Empty for absent files.
	Data []byte

	// Mode is the captured permission bits. Zero for absent files.
	Mode os.FileMode
}

// Snapshot holds the state of the tracked files in one directory.
//
// Thread Safety: Treat as immutable after capture.
type Snapshot struct {
	// Dir is the working directory the snapshot was taken in.
	Dir string

	// Files maps tracked file name to its captured state. Every name
	// passed to Capture has an entry, present or absent, unless the
	// read itself failed.
	Files map[string]FileState
}

// =============================================================================
// Manager Interface
// =============================================================================

// Manager captures and restores tracked file state.
//
// # Description
//
// Capture reads the current state of each named file; Restore puts the
// directory back to that state, deleting tracked files that did not
// exist at capture time. Both operations are best-effort per file: a
// failure on one file never aborts handling of the rest.
type Manager interface {
	Capture(dir string, fileNames []string) (*Snapshot, error)
	Restore(dir string, snap *Snapshot) error
}

// =============================================================================
// FileManager
// =============================================================================

// FileManager implements Manager against the local filesystem.
type FileManager struct{}

// Compile-time interface satisfaction check
var _ Manager = (*FileManager)(nil)

// NewFileManager creates a filesystem-backed snapshot manager.
func NewFileManager() *FileManager {
	return &FileManager{}
}

// Capture records the current state of each named file in dir.
//
// # Description
//
// Files that exist are read fully and recorded with their permission
// bits; files that do not exist are recorded as absent. A read failure
// on an existing file is logged and collected, and that file is left
// out of the snapshot entirely so a later Restore will not touch it.
//
// # Inputs
//
//   - dir: Working directory containing the tracked files.
//   - fileNames: Names (relative to dir) of the files to track.
//
// # Outputs
//
//   - *Snapshot: Captured state, usable even when err is non-nil.
//   - error: Joined per-file read failures, nil when all reads worked.
func (m *FileManager) Capture(dir string, fileNames []string) (*Snapshot, error) {
	snap := &Snapshot{
		Dir:   dir,
		Files: make(map[string]FileState, len(fileNames)),
	}

	var errs []error

	for _, name := range fileNames {
		path := filepath.Join(dir, name)

		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			snap.Files[name] = FileState{Present: false}
			continue
		}
		if err != nil {
			slog.Warn("Snapshot capture stat failed",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%w: stat %s: %v", ErrCaptureRead, name, err))
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Snapshot capture read failed",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrCaptureRead, name, err))
			continue
		}

		snap.Files[name] = FileState{
			Present: true,
			Data:    data,
			Mode:    info.Mode().Perm(),
		}
	}

	slog.Debug("Snapshot captured",
		slog.String("dir", dir),
		slog.Int("tracked", len(snap.Files)),
	)

	return snap, errors.Join(errs...)
}

// Restore puts dir back to the state held in snap.
//
// # Description
//
// Writes back captured content for every file that was present and
// deletes every tracked file that exists now but was recorded absent.
// Each file is handled independently: a write or delete failure is
// logged and collected, and restoration continues with the remaining
// files.
//
// # Inputs
//
//   - dir: Working directory to restore into. Overrides snap.Dir so a
//     snapshot can be replayed against a copied fixture.
//   - snap: The snapshot to apply.
//
// # Outputs
//
//   - error: Joined per-file failures, nil when everything restored.
func (m *FileManager) Restore(dir string, snap *Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}

	var errs []error

	for name, state := range snap.Files {
		path := filepath.Join(dir, name)

		if !state.Present {
			err := os.Remove(path)
			if err != nil && !os.IsNotExist(err) {
				slog.Warn("Snapshot restore delete failed",
					slog.String("file", name),
					slog.String("error", err.Error()),
				)
				errs = append(errs, fmt.Errorf("%w: %s: %v", ErrRestoreDelete, name, err))
			}
			continue
		}

		mode := state.Mode
		if mode == 0 {
			mode = defaultFileMode
		}

		if err := os.WriteFile(path, state.Data, mode); err != nil {
			slog.Warn("Snapshot restore write failed",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrRestoreWrite, name, err))
		}
	}

	slog.Debug("Snapshot restored",
		slog.String("dir", dir),
		slog.Int("tracked", len(snap.Files)),
	)

	return errors.Join(errs...)
}
