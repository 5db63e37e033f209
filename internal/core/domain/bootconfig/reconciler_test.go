package bootconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// newTestReconciler writes pristine content into a scratch config.txt and
// returns a reconciler over it.
func newTestReconciler(t *testing.T, pristine string, settings Settings) *Reconciler {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.txt")
	require.NoError(t, os.WriteFile(path, []byte(pristine), 0o644))
	r, err := NewReconciler(path, settings)
	require.NoError(t, err)
	return r
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestReconcile_DocumentedScenario(t *testing.T) {
	settings, err := NewSettings("dtparam=audio=off")
	require.NoError(t, err)
	r := newTestReconciler(t, "dtparam=audio=on\n#comment\n", settings)

	outcome, err := r.Reconcile()
	require.NoError(t, err)
	assert.True(t, outcome.BackupCreated)
	assert.False(t, outcome.RestoredFromBackup)
	assert.Equal(t, 1, outcome.ManagedReplaced)

	want := "#comment\n\n[all]\n# RPI-COMPUTE-NODE CONFIG\ndtparam=audio=off\n"
	assert.Equal(t, want, readFile(t, r.ConfigPath()))
	assert.Equal(t, "dtparam=audio=on\n#comment\n", readFile(t, r.BackupPath()),
		"backup holds the pristine two-line content")
}

func TestReconcile_SecondRunIsByteIdentical(t *testing.T) {
	settings, err := NewSettings("dtparam=audio=off")
	require.NoError(t, err)
	r := newTestReconciler(t, "dtparam=audio=on\n#comment\n", settings)

	_, err = r.Reconcile()
	require.NoError(t, err)
	first := readFile(t, r.ConfigPath())

	outcome, err := r.Reconcile()
	require.NoError(t, err)
	assert.True(t, outcome.RestoredFromBackup, "marker detected, pristine state restored first")
	assert.False(t, outcome.BackupCreated, "backup is created at most once")

	assert.Equal(t, first, readFile(t, r.ConfigPath()), "not double-appended")
}

func TestReconcile_EmptiedSettingsRestorePristine(t *testing.T) {
	pristine := "dtparam=audio=on\narm_freq=2000\n# user note\n"
	settings, err := NewSettings("dtparam=audio=off")
	require.NoError(t, err)
	r := newTestReconciler(t, pristine, settings)

	_, err = r.Reconcile()
	require.NoError(t, err)

	// Same file, emptied desired list: the next run restores the backup and
	// appends nothing.
	empty, err := NewSettings()
	require.NoError(t, err)
	r2, err := NewReconciler(r.ConfigPath(), empty)
	require.NoError(t, err)

	_, err = r2.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, pristine, readFile(t, r.ConfigPath()))
}

func TestReconcile_RemovedSettingRevertsToPristineValue(t *testing.T) {
	pristine := "gpu_mem=256\ndtparam=audio=on\n"
	settings, err := NewSettings("dtparam=audio=off", "gpu_mem=16")
	require.NoError(t, err)
	r := newTestReconciler(t, pristine, settings)

	_, err = r.Reconcile()
	require.NoError(t, err)

	// gpu_mem dropped from the desired list: it must come back as the
	// backed-up 256, not stay 16 and not vanish.
	reduced, err := NewSettings("dtparam=audio=off")
	require.NoError(t, err)
	r2, err := NewReconciler(r.ConfigPath(), reduced)
	require.NoError(t, err)

	_, err = r2.Reconcile()
	require.NoError(t, err)

	content := readFile(t, r.ConfigPath())
	assert.Contains(t, content, "gpu_mem=256\n")
	assert.NotContains(t, content, "gpu_mem=16")
}

func TestReconcile_PreservesUnmanagedLinesAndDuplicates(t *testing.T) {
	pristine := strings.Join([]string{
		"# comment one",
		"arm_freq=1800",
		"[pi4]",
		"arm_freq=1800",
		"dtparam=audio=on",
		"# comment two",
		"",
		"over_voltage=2",
	}, "\n") + "\n"

	settings, err := NewSettings("dtparam=audio=off")
	require.NoError(t, err)
	r := newTestReconciler(t, pristine, settings)

	_, err = r.Reconcile()
	require.NoError(t, err)

	content := readFile(t, r.ConfigPath())
	idx := strings.Index(content, Marker)
	require.Positive(t, idx)
	unmanaged := content[:strings.Index(content, "\n\n[all]\n")]

	assert.Equal(t, strings.Join([]string{
		"# comment one",
		"arm_freq=1800",
		"[pi4]",
		"arm_freq=1800",
		"# comment two",
		"",
		"over_voltage=2",
	}, "\n"), unmanaged, "unmanaged lines keep their order, duplicates are not deduplicated")
}

func TestReconcile_MarkerWithoutBackupIsFatal(t *testing.T) {
	settings, err := NewSettings("dtparam=audio=off")
	require.NoError(t, err)
	r := newTestReconciler(t, "dtparam=audio=on\n", settings)

	_, err = r.Reconcile()
	require.NoError(t, err)
	managed := readFile(t, r.ConfigPath())

	// Simulate external deletion of the recovery point.
	require.NoError(t, os.Remove(r.BackupPath()))

	_, err = r.Reconcile()
	require.ErrorIs(t, err, ErrBackupMissing)
	assert.Equal(t, managed, readFile(t, r.ConfigPath()), "file must not be modified further")
}

func TestReconcile_ExistingBackupIsNeverOverwritten(t *testing.T) {
	settings, err := NewSettings("dtparam=audio=off")
	require.NoError(t, err)
	r := newTestReconciler(t, "original\n", settings)

	_, err = r.Reconcile()
	require.NoError(t, err)

	// Marker removed by hand but the backup still present: the file counts
	// as pristine again, and the old backup must survive as-is.
	require.NoError(t, os.WriteFile(r.ConfigPath(), []byte("hand edited\n"), 0o644))

	_, err = r.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, "original\n", readFile(t, r.BackupPath()))
}

func TestConverged(t *testing.T) {
	settings, err := NewSettings("dtparam=audio=off")
	require.NoError(t, err)
	r := newTestReconciler(t, "dtparam=audio=on\n", settings)

	converged, err := r.Converged()
	require.NoError(t, err)
	assert.False(t, converged, "pristine file is not converged")

	_, err = r.Reconcile()
	require.NoError(t, err)

	converged, err = r.Converged()
	require.NoError(t, err)
	assert.True(t, converged)

	require.NoError(t, os.Remove(r.BackupPath()))
	_, err = r.Converged()
	assert.ErrorIs(t, err, ErrBackupMissing)
}

func TestRestore(t *testing.T) {
	pristine := "dtparam=audio=on\n# keep me\n"
	settings, err := NewSettings("dtparam=audio=off")
	require.NoError(t, err)
	r := newTestReconciler(t, pristine, settings)

	err = r.Restore()
	assert.Error(t, err, "nothing to restore before the first reconciliation")

	_, err = r.Reconcile()
	require.NoError(t, err)

	require.NoError(t, r.Restore())
	assert.Equal(t, pristine, readFile(t, r.ConfigPath()))
}

// pristineLine generates plausible unmanaged config.txt content: comments,
// section headers, key=value pairs, bare directives, blanks.
func pristineLine(t *rapid.T) string {
	kind := rapid.IntRange(0, 4).Draw(t, "kind")
	word := rapid.StringMatching(`[a-z_][a-z0-9_]{0,11}`)
	switch kind {
	case 0:
		return "# " + word.Draw(t, "comment")
	case 1:
		return "[" + word.Draw(t, "section") + "]"
	case 2:
		return word.Draw(t, "key") + "=" + rapid.StringMatching(`[a-z0-9-]{1,8}`).Draw(t, "value")
	case 3:
		return word.Draw(t, "directive")
	default:
		return ""
	}
}

func TestReconcile_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lines := rapid.SliceOfN(rapid.Custom(pristineLine), 0, 20).Draw(rt, "lines")
		pristine := ""
		if len(lines) > 0 {
			pristine = strings.Join(lines, "\n") + "\n"
		}

		settings := DefaultSettings()

		dir, err := os.MkdirTemp("", "bootconfig")
		require.NoError(t, err)
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, "config.txt")
		require.NoError(t, os.WriteFile(path, []byte(pristine), 0o644))
		r, err := NewReconciler(path, settings)
		require.NoError(t, err)

		_, err = r.Reconcile()
		require.NoError(t, err)
		first, err := os.ReadFile(path)
		require.NoError(t, err)

		// Idempotence: a second run produces identical bytes.
		_, err = r.Reconcile()
		require.NoError(t, err)
		second, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, string(first), string(second))

		// Every desired setting appears exactly once.
		for _, s := range settings.All() {
			require.Equal(t, 1, strings.Count(string(first), "\n"+s.Line()+"\n"),
				"setting %s must appear exactly once", s.Line())
		}

		// Preservation: unmanaged pristine lines survive in order. The
		// marker line cannot be generated, so the appended block is located
		// through it rather than the section header (which a pristine file
		// may legitimately contain).
		managedBlock := strings.Index(string(first), "\n"+SectionHeader+"\n"+Marker+"\n")
		require.GreaterOrEqual(t, managedBlock, 0)
		kept := string(first)[:managedBlock+1]
		pos := 0
		for _, line := range lines {
			if settings.Manages(line) {
				continue
			}
			idx := strings.Index(kept[pos:], line+"\n")
			require.GreaterOrEqual(t, idx, 0, "unmanaged line %q must survive", line)
			pos += idx + len(line) + 1
		}

		// Restoration: emptying the list returns exactly the pristine file.
		empty, err := NewSettings()
		require.NoError(t, err)
		r2, err := NewReconciler(path, empty)
		require.NoError(t, err)
		_, err = r2.Reconcile()
		require.NoError(t, err)
		restored, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, pristine, string(restored))
	})
}
