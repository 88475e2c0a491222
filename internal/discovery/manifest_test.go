package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultManifestFile), []byte(body), 0644))
}

func TestReadManifest_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		outcome ManifestOutcome
		entries int
	}{
		{"empty profiles", `{"profiles": {}}`, ManifestEmpty, 0},
		{"no profiles key", `{"version": 3}`, ManifestEmpty, 0},
		{"null profiles", `{"profiles": null}`, ManifestEmpty, 0},
		{"malformed json", `{"profiles": {`, ManifestInvalid, 0},
		{"profiles not an object", `{"profiles": []}`, ManifestInvalid, 0},
		{"entry without exec_path", `{"profiles": {"a": {"local": {}}}}`, ManifestEmpty, 0},
		{"one entry", `{"profiles": {"a": {"local": {"paths": {"exec_path": "/pos/a/regagent.exe"}}}}}`, ManifestPopulated, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.body)

			m := ReadManifest(dir, "")
			assert.Equal(t, tt.outcome, m.Outcome)
			assert.Len(t, m.Entries, tt.entries)
			if tt.outcome == ManifestInvalid {
				assert.Error(t, m.Err)
			} else {
				assert.NoError(t, m.Err)
			}
		})
	}
}

func TestReadManifest_Absent(t *testing.T) {
	assert.Equal(t, ManifestAbsent, ReadManifest("", "").Outcome)
	assert.Equal(t, ManifestAbsent, ReadManifest(t.TempDir(), "").Outcome)
}

func TestReadManifest_PreservesFileOrder(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"profiles": {
		"z": {"local": {"paths": {"exec_path": "/pos/z/regagent.exe"}}},
		"a": {"local": {"paths": {"exec_path": "/pos/a/regagent.exe"}}},
		"m": {"local": {"paths": {"exec_path": "/pos/m/regagent.exe"}}}
	}}`)

	m := ReadManifest(dir, "")
	require.Len(t, m.Entries, 3)
	assert.Equal(t, []string{"z", "a", "m"}, []string{m.Entries[0].ProfileID, m.Entries[1].ProfileID, m.Entries[2].ProfileID})
}

func TestReadManifest_ByteOrderMark(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "\xef\xbb\xbf"+`{"profiles": {"a": {"local": {"paths": {"exec_path": "/pos/a/regagent.exe"}}}}}`)
	assert.Equal(t, ManifestPopulated, ReadManifest(dir, "").Outcome)
}

func TestInstanceDirFromExec(t *testing.T) {
	mgr := t.TempDir()
	existing := filepath.Join(mgr, "profiles", "p1")
	require.NoError(t, os.MkdirAll(existing, 0755))
	noExt := filepath.Join(existing, "regagent")
	require.NoError(t, os.WriteFile(noExt, []byte("x"), 0755))

	tests := []struct {
		name string
		exec string
		want string
	}{
		{"existing directory", existing, existing},
		{"existing file without extension", noExt, existing},
		{"missing file with extension", filepath.Join(mgr, "profiles", "p2", "regagent.exe"), filepath.Join(mgr, "profiles", "p2")},
		{"missing directory", filepath.Join(mgr, "profiles", "p3"), filepath.Join(mgr, "profiles", "p3")},
		{"relative to manager", filepath.Join("profiles", "p1", "regagent.exe"), existing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, instanceDirFromExec(tt.exec, mgr))
		})
	}
}
