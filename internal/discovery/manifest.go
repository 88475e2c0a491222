package discovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/regdesk/regctl/internal/util"
)

// DefaultManifestFile is the manager's record of the instances it supervises.
const DefaultManifestFile = "profiles.json"

// ManifestOutcome says what reading the manifest produced.
type ManifestOutcome int

const (
	// ManifestAbsent means there is no manager directory or no manifest file.
	ManifestAbsent ManifestOutcome = iota
	// ManifestInvalid means the file exists but is not a readable manifest.
	ManifestInvalid
	// ManifestEmpty means the manifest parsed but lists no instances.
	ManifestEmpty
	// ManifestPopulated means at least one instance path was listed.
	ManifestPopulated
)

func (o ManifestOutcome) String() string {
	switch o {
	case ManifestAbsent:
		return "absent"
	case ManifestInvalid:
		return "invalid"
	case ManifestEmpty:
		return "empty"
	case ManifestPopulated:
		return "populated"
	default:
		return "unknown"
	}
}

// ManifestEntry is one profile listed by the manager.
type ManifestEntry struct {
	ProfileID string `json:"profile_id"`
	ExecPath  string `json:"exec_path"`
	Dir       string `json:"dir"`
}

// Manifest is the parsed manager manifest.
type Manifest struct {
	Path    string
	Outcome ManifestOutcome
	Entries []ManifestEntry
	// Err explains an Invalid outcome.
	Err error
}

// Empty reports whether there was no manager directory to read from. Any
// outcome read from a known manager directory is kept until the cache is
// reset, so the external classification of discovered instances stays put.
func (m Manifest) Empty() bool {
	return m.Path == ""
}

// Dirs returns the instance directories in manifest order.
func (m Manifest) Dirs() []string {
	dirs := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		dirs = append(dirs, e.Dir)
	}
	return dirs
}

// profile mirrors {"local": {"paths": {"exec_path": ...}}}.
type profile struct {
	Local struct {
		Paths struct {
			ExecPath string `json:"exec_path"`
		} `json:"paths"`
	} `json:"local"`
}

// ReadManifest reads the manifest file in managerDir. It never fails; the
// outcome carries what happened.
func ReadManifest(managerDir, file string) Manifest {
	if file == "" {
		file = DefaultManifestFile
	}
	if managerDir == "" {
		return Manifest{Outcome: ManifestAbsent}
	}
	path := filepath.Join(managerDir, file)
	m := Manifest{Path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		m.Outcome = ManifestAbsent
		return m
	}
	if err != nil {
		m.Outcome = ManifestInvalid
		m.Err = fmt.Errorf("reading manifest: %w", err)
		return m
	}

	entries, err := parseManifest(data, managerDir)
	if err != nil {
		m.Outcome = ManifestInvalid
		m.Err = err
		return m
	}
	m.Entries = entries
	if len(entries) == 0 {
		m.Outcome = ManifestEmpty
	} else {
		m.Outcome = ManifestPopulated
	}
	return m
}

// parseManifest decodes profiles in file order. Profiles without an
// exec_path are skipped.
func parseManifest(data []byte, managerDir string) ([]ManifestEntry, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	raw, ok := top["profiles"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing profiles: expected object, got %v", tok)
	}

	var entries []ManifestEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing profiles: %w", err)
		}
		id, _ := keyTok.(string)

		var p profile
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("parsing profile %q: %w", id, err)
		}
		exec := strings.TrimSpace(p.Local.Paths.ExecPath)
		if exec == "" {
			continue
		}
		entries = append(entries, ManifestEntry{
			ProfileID: id,
			ExecPath:  exec,
			Dir:       instanceDirFromExec(exec, managerDir),
		})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	return entries, nil
}

// instanceDirFromExec maps exec_path to its instance directory. A path to a
// file (an existing regular file, or anything with an extension) resolves to
// its parent; anything else is taken as the directory. Relative paths are
// relative to the manager directory.
func instanceDirFromExec(exec, managerDir string) string {
	if !filepath.IsAbs(exec) && filepath.VolumeName(exec) == "" {
		exec = filepath.Join(managerDir, exec)
	}
	exec = util.NormalizePath(exec)

	if info, err := os.Stat(exec); err == nil {
		if info.IsDir() {
			return exec
		}
		return filepath.Dir(exec)
	}
	if filepath.Ext(exec) != "" {
		return filepath.Dir(exec)
	}
	return exec
}
