package bootconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Marker is the sentinel line recording that the configuration file
// currently contains managed settings.
const Marker = "# RPI-COMPUTE-NODE CONFIG"

// SectionHeader is the config.txt section the managed block is appended
// under, so the settings apply to every board revision.
const SectionHeader = "[all]"

// BackupSuffix is appended to the configuration path to name the pristine
// snapshot. The backup lives next to the file it restores so both stay on
// the boot partition.
const BackupSuffix = ".pristine"

// ErrBackupMissing reports the fatal inconsistency of a managed file
// (marker present) without a recovery point.
var ErrBackupMissing = errors.New("marker present but backup file is missing")

// Outcome describes what a reconciliation run did, for status reporting.
type Outcome struct {
	RestoredFromBackup bool // marker was present, pristine state restored first
	BackupCreated      bool // first run, pristine snapshot captured
	ManagedReplaced    int  // pristine lines dropped as managed
}

// Reconciler rewrites one boot configuration file toward a desired-state
// list, guarded by the marker/backup protocol. All paths are injected so
// tests can point it at a temporary directory.
type Reconciler struct {
	configPath string
	backupPath string
	settings   Settings
}

// NewReconciler creates a Reconciler for the given configuration file. The
// backup path is derived as configPath + BackupSuffix.
func NewReconciler(configPath string, settings Settings) (*Reconciler, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	return &Reconciler{
		configPath: configPath,
		backupPath: configPath + BackupSuffix,
		settings:   settings,
	}, nil
}

// ConfigPath returns the path of the reconciled file.
func (r *Reconciler) ConfigPath() string {
	return r.configPath
}

// BackupPath returns the path of the pristine snapshot.
func (r *Reconciler) BackupPath() string {
	return r.backupPath
}

// Managed reports whether the configuration file currently carries the
// marker, without modifying anything.
func (r *Reconciler) Managed() (bool, error) {
	data, err := os.ReadFile(r.configPath)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", r.configPath, err)
	}
	return containsMarker(string(data)), nil
}

// Converged reports whether the configuration file already holds exactly
// what Reconcile would produce, without modifying anything. It surfaces
// ErrBackupMissing for a managed file whose backup has gone away.
func (r *Reconciler) Converged() (bool, error) {
	current, err := os.ReadFile(r.configPath)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", r.configPath, err)
	}
	if !containsMarker(string(current)) {
		return r.settings.Len() == 0, nil
	}
	backup, err := os.ReadFile(r.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("%s: %w", r.configPath, ErrBackupMissing)
		}
		return false, fmt.Errorf("read %s: %w", r.backupPath, err)
	}
	if r.settings.Len() == 0 {
		// Reconcile would restore the backup and stop.
		return string(current) == string(backup), nil
	}
	expected, _ := r.render(string(backup))
	return string(current) == expected, nil
}

// Reconcile runs one full restore-then-reapply cycle:
//
//  1. Marker present: the backup must exist; restore it over the
//     configuration file. Marker absent: capture the backup if this is the
//     first run.
//  2. Drop managed lines from the pristine content, keeping everything
//     else in original order.
//  3. Append the separator, section header, marker, and every desired
//     setting in declared order.
//  4. Replace the file atomically.
//
// Repeated invocation always converges to the same bytes.
func (r *Reconciler) Reconcile() (Outcome, error) {
	var out Outcome

	managed, err := r.Managed()
	if err != nil {
		return out, err
	}

	if managed {
		if _, err := os.Stat(r.backupPath); err != nil {
			if os.IsNotExist(err) {
				return out, fmt.Errorf("%s: %w", r.configPath, ErrBackupMissing)
			}
			return out, fmt.Errorf("stat %s: %w", r.backupPath, err)
		}
		if err := r.restoreBackup(); err != nil {
			return out, err
		}
		out.RestoredFromBackup = true
	} else if r.settings.Len() == 0 {
		// Nothing to manage and nothing managed: leave the file and skip
		// the backup capture entirely.
		return out, nil
	} else if _, err := os.Stat(r.backupPath); os.IsNotExist(err) {
		if err := r.createBackup(); err != nil {
			return out, err
		}
		out.BackupCreated = true
	} else if err != nil {
		return out, fmt.Errorf("stat %s: %w", r.backupPath, err)
	}

	if r.settings.Len() == 0 {
		// An emptied desired list converges to the pristine file itself:
		// the restore above already removed every managed setting, and a
		// marker with no settings would claim management of nothing.
		return out, nil
	}

	pristine, err := os.ReadFile(r.configPath)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", r.configPath, err)
	}

	rendered, replaced := r.render(string(pristine))
	out.ManagedReplaced = replaced

	if err := atomicWrite(r.configPath, []byte(rendered)); err != nil {
		return out, err
	}
	return out, nil
}

// Restore copies the backup over the configuration file, undoing every
// managed change. It is a no-op error when the file is not managed.
func (r *Reconciler) Restore() error {
	managed, err := r.Managed()
	if err != nil {
		return err
	}
	if !managed {
		return fmt.Errorf("%s is not managed, nothing to restore", r.configPath)
	}
	if _, err := os.Stat(r.backupPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", r.configPath, ErrBackupMissing)
		}
		return fmt.Errorf("stat %s: %w", r.backupPath, err)
	}
	return r.restoreBackup()
}

// render drops managed lines from the pristine content and appends the
// managed block. The pristine trailing newline handling is normalized: the
// output always ends with a single newline.
func (r *Reconciler) render(pristine string) (string, int) {
	var buf strings.Builder
	replaced := 0

	lines := strings.Split(pristine, "\n")
	// Split leaves a trailing empty element when the content ends in \n.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for _, line := range lines {
		if r.settings.Manages(line) {
			replaced++
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	buf.WriteString("\n")
	buf.WriteString(SectionHeader)
	buf.WriteString("\n")
	buf.WriteString(Marker)
	buf.WriteString("\n")
	for _, s := range r.settings.All() {
		buf.WriteString(s.Line())
		buf.WriteString("\n")
	}
	return buf.String(), replaced
}

func (r *Reconciler) createBackup() error {
	data, err := os.ReadFile(r.configPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", r.configPath, err)
	}
	if err := atomicWrite(r.backupPath, data); err != nil {
		return err
	}
	return nil
}

func (r *Reconciler) restoreBackup() error {
	data, err := os.ReadFile(r.backupPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", r.backupPath, err)
	}
	return atomicWrite(r.configPath, data)
}

func containsMarker(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == Marker {
			return true
		}
	}
	return false
}

// atomicWrite writes data to a temporary file in the target's directory and
// renames it into place, so a crash mid-write never leaves a torn file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}
