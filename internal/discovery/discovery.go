// Package discovery finds the manager installation and every cash-register
// instance on the machine, and reconciles what the manager's manifest, the
// live process table and the filesystem say about them.
//
// Sources are consulted in a fixed order: manifest, then running agent
// processes, then (only when no process was found) a bounded filesystem
// search. The first source to report a directory owns it; later sources can
// only add directories the manifest does not list, and those are marked
// external.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/regdesk/regctl/internal/agentdb"
	"github.com/regdesk/regctl/internal/logging"
	"github.com/regdesk/regctl/internal/process"
	"github.com/regdesk/regctl/internal/scan"
	"github.com/regdesk/regctl/internal/util"
)

// ErrInstanceNotFound indicates no resolved instance matched a query.
var ErrInstanceNotFound = errors.New("instance not found")

// ErrManagerNotFound indicates the manager installation could not be located.
var ErrManagerNotFound = errors.New("manager installation not found")

// ExternalPrefix marks the display name of instances the manifest does not list.
const ExternalPrefix = "[ext] "

// DefaultVersionFile holds an instance's version string.
const DefaultVersionFile = "version.txt"

// Source records how an instance was first discovered.
type Source int

const (
	SourceManifest Source = iota
	SourceProcess
	SourceFilesystem
)

func (s Source) String() string {
	switch s {
	case SourceManifest:
		return "MANIFEST"
	case SourceProcess:
		return "PROCESS"
	case SourceFilesystem:
		return "FILESYSTEM"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the source by name in JSON output.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a source name as written by MarshalText.
func (s *Source) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "MANIFEST":
		*s = SourceManifest
	case "PROCESS":
		*s = SourceProcess
	case "FILESYSTEM":
		*s = SourceFilesystem
	default:
		return fmt.Errorf("unknown instance source %q", text)
	}
	return nil
}

// Instance is one discovered cash-register installation.
type Instance struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Source   Source `json:"source"`
	External bool   `json:"is_external"`
	// Running is filled by Engine.AnnotateRunning at display time and is
	// never cached.
	Running bool   `json:"is_running"`
	Version string `json:"version"`

	agentdb.Record
}

// Result is the outcome of one resolution pass.
type Result struct {
	ManagerDir string
	Manifest   Manifest
	// ManifestEmpty is set when the manifest parsed but listed nothing,
	// which usually means the manager is misconfigured.
	ManifestEmpty bool
	Instances     []Instance
}

// HealthReader produces the database-derived part of an instance record.
type HealthReader interface {
	Read(ctx context.Context, instanceDir string) agentdb.Record
}

// Config names the processes, files and search bounds discovery works with.
type Config struct {
	ManagerProcess string
	AgentProcess   string
	ManifestFile   string
	DatabaseFile   string
	VersionFile    string

	// ManagerDir, when set, skips manager discovery.
	ManagerDir string
	// CommonRoots are well-known manager locations searched before drives.
	CommonRoots  []string
	ManagerDepth int
	DriveRoots   []string
	DriveDepth   int
	// InstanceDepth bounds the filesystem fallback search for instances.
	InstanceDepth int
	Excluded      []string
}

func (c Config) withDefaults() Config {
	if c.ManifestFile == "" {
		c.ManifestFile = DefaultManifestFile
	}
	if c.DatabaseFile == "" {
		c.DatabaseFile = agentdb.DefaultFile
	}
	if c.VersionFile == "" {
		c.VersionFile = DefaultVersionFile
	}
	if c.ManagerDepth <= 0 {
		c.ManagerDepth = 3
	}
	if c.DriveDepth <= 0 {
		c.DriveDepth = 4
	}
	if c.InstanceDepth <= 0 {
		c.InstanceDepth = 5
	}
	if c.Excluded == nil {
		c.Excluded = scan.DefaultExcluded
	}
	return c
}

// Engine resolves instances. It is driven from a single goroutine.
type Engine struct {
	cfg     Config
	cache   *Cache
	procs   *process.Locator
	scanner *scan.Scanner
	health  HealthReader
	log     zerolog.Logger
}

// NewEngine wires an engine from its collaborators.
func NewEngine(cfg Config, cache *Cache, procs *process.Locator, scanner *scan.Scanner, health HealthReader, log zerolog.Logger) *Engine {
	if cache == nil {
		cache = NewCache()
	}
	return &Engine{
		cfg:     cfg.withDefaults(),
		cache:   cache,
		procs:   procs,
		scanner: scanner,
		health:  health,
		log:     logging.Component(log, "discovery"),
	}
}

// Cache returns the engine's discovery cache.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Invalidate drops everything discovered so far. Call it after anything
// that may have changed installed or running instances.
func (e *Engine) Invalidate() {
	e.log.Debug().Msg("discovery cache reset")
	e.cache.Reset()
}

// ManagerDir returns the manager installation directory, or "".
func (e *Engine) ManagerDir(useCache bool) string {
	return GetOrPopulate(e.cache, CategoryManager, useCache, e.locateManager)
}

// Resolve runs one reconciliation pass.
func (e *Engine) Resolve(ctx context.Context, useCache bool) Result {
	var res Result
	res.ManagerDir = e.ManagerDir(useCache)

	res.Manifest = GetOrPopulate(e.cache, CategoryManifest, useCache, func() Manifest {
		return ReadManifest(res.ManagerDir, e.cfg.ManifestFile)
	})
	switch res.Manifest.Outcome {
	case ManifestEmpty:
		res.ManifestEmpty = true
		e.log.Warn().Str("manifest", res.Manifest.Path).Msg("manifest lists no instances")
	case ManifestInvalid:
		e.log.Warn().Str("manifest", res.Manifest.Path).Err(res.Manifest.Err).Msg("manifest unreadable")
	}

	candidates := e.reconcile(res.ManagerDir, res.Manifest.Dirs(), useCache)

	res.Instances = make([]Instance, 0, len(candidates))
	for _, c := range candidates {
		res.Instances = append(res.Instances, e.describe(ctx, c))
	}
	return res
}

type candidate struct {
	path     string
	source   Source
	external bool
}

// reconcile merges the manifest directories with process or filesystem
// discoveries, deduplicated by path identity, manifest entries first.
//
// A path classified external stays external until the cache is reset, even
// if a manifest read later in the same generation lists it.
func (e *Engine) reconcile(managerDir string, manifestDirs []string, useCache bool) []candidate {
	external := GetOrPopulate(e.cache, CategoryExternal, true, func() map[string]bool {
		return make(map[string]bool)
	})
	seen := make(map[string]bool)
	var out []candidate

	for _, dir := range manifestDirs {
		key := util.PathKey(dir)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, candidate{path: util.NormalizePath(dir), source: SourceManifest, external: external[key]})
	}
	// The manifest set is frozen here; discoveries below never join it.
	inManifest := make(map[string]bool, len(seen))
	for k := range seen {
		inManifest[k] = true
	}

	found := GetOrPopulate(e.cache, CategoryProcess, useCache, func() []string {
		return e.discoverByProcess(managerDir)
	})
	source := SourceProcess
	if len(found) == 0 {
		found = GetOrPopulate(e.cache, CategoryFilesystem, useCache, func() []string {
			return e.discoverOnDisk(managerDir)
		})
		source = SourceFilesystem
	}

	for _, dir := range found {
		key := util.PathKey(dir)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		isExternal := !inManifest[key] || external[key]
		if isExternal {
			external[key] = true
		}
		out = append(out, candidate{path: dir, source: source, external: isExternal})
	}
	return out
}

// discoverByProcess returns the working directories of running agents.
func (e *Engine) discoverByProcess(managerDir string) []string {
	if e.procs == nil || e.cfg.AgentProcess == "" {
		return nil
	}
	var dirs []string
	for _, h := range e.procs.FindAllByName(e.cfg.AgentProcess) {
		dir := h.WorkDir()
		if dir == "" {
			continue
		}
		if util.SamePath(dir, managerDir) {
			continue
		}
		if util.MatchesExcluded(dir, e.cfg.Excluded) {
			e.log.Debug().Str("dir", dir).Int32("pid", h.PID).Msg("agent in excluded directory ignored")
			continue
		}
		dirs = append(dirs, dir)
	}
	e.log.Debug().Int("count", len(dirs)).Msg("agents found in process table")
	return dirs
}

// discoverOnDisk searches for instance databases under the manager
// directory, or under every drive when the manager is unknown.
func (e *Engine) discoverOnDisk(managerDir string) []string {
	if e.scanner == nil {
		return nil
	}
	roots := e.cfg.DriveRoots
	if managerDir != "" {
		roots = []string{managerDir}
	}
	var dirs []string
	for _, dir := range e.scanner.FindAll(roots, scan.HasEntry(e.cfg.DatabaseFile), e.cfg.InstanceDepth) {
		if util.SamePath(dir, managerDir) {
			continue
		}
		dirs = append(dirs, dir)
	}
	e.log.Debug().Strs("roots", roots).Int("count", len(dirs)).Msg("instances found on disk")
	return dirs
}

// locateManager tries, in order: the running manager process, the
// well-known roots, and every drive root.
func (e *Engine) locateManager() string {
	if e.cfg.ManagerDir != "" {
		if info, err := os.Stat(e.cfg.ManagerDir); err == nil && info.IsDir() {
			return util.NormalizePath(e.cfg.ManagerDir)
		}
		e.log.Warn().Str("dir", e.cfg.ManagerDir).Msg("configured manager directory missing, searching")
	}

	if e.procs != nil && e.cfg.ManagerProcess != "" {
		for _, h := range e.procs.FindAllByName(e.cfg.ManagerProcess) {
			if h.Exe != "" {
				dir := util.NormalizePath(filepath.Dir(h.Exe))
				e.log.Debug().Str("dir", dir).Int32("pid", h.PID).Msg("manager found via process")
				return dir
			}
		}
	}

	if e.scanner == nil {
		return ""
	}
	isManager := scan.HasEntry(e.cfg.ManagerProcess, e.cfg.ManifestFile)
	if dir, ok := e.scanner.FindFirst(e.cfg.CommonRoots, isManager, e.cfg.ManagerDepth); ok {
		e.log.Debug().Str("dir", dir).Msg("manager found in common roots")
		return dir
	}
	if dir, ok := e.scanner.FindFirst(e.cfg.DriveRoots, isManager, e.cfg.DriveDepth); ok {
		e.log.Debug().Str("dir", dir).Msg("manager found on drives")
		return dir
	}
	e.log.Debug().Msg("manager not found")
	return ""
}

// describe builds the full record for one candidate.
func (e *Engine) describe(ctx context.Context, c candidate) Instance {
	inst := Instance{
		Path:     c.path,
		Name:     filepath.Base(c.path),
		Source:   c.source,
		External: c.external,
		Version:  readVersion(filepath.Join(c.path, e.cfg.VersionFile)),
		Record:   agentdb.DefaultRecord(),
	}
	if c.external {
		inst.Name = ExternalPrefix + inst.Name
	}
	if e.health != nil {
		inst.Record = e.health.Read(ctx, c.path)
	}
	return inst
}

// AnnotateRunning sets Running on each instance from a fresh process-table
// query.
func (e *Engine) AnnotateRunning(instances []Instance) {
	for i := range instances {
		instances[i].Running = e.IsRunning(instances[i].Path)
	}
}

// IsRunning reports whether an agent process runs from dir.
func (e *Engine) IsRunning(dir string) bool {
	if e.procs == nil {
		return false
	}
	return e.procs.IsRunning(e.cfg.AgentProcess, dir)
}

// AgentProcesses returns the agent processes running from dir.
func (e *Engine) AgentProcesses(dir string) []*process.Handle {
	if e.procs == nil {
		return nil
	}
	return e.procs.FindAllUnder(e.cfg.AgentProcess, dir)
}

// AgentExecutable returns the agent binary path inside an instance directory.
func (e *Engine) AgentExecutable(dir string) string {
	return filepath.Join(dir, e.cfg.AgentProcess)
}

// ManagerExecutable returns the manager binary path inside managerDir.
func (e *Engine) ManagerExecutable(managerDir string) string {
	return filepath.Join(managerDir, e.cfg.ManagerProcess)
}

func readVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return agentdb.Unknown
	}
	v := strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff"))
	if v == "" {
		return agentdb.Unknown
	}
	return v
}

// Find returns the instance matching query by display name (with or without
// the external prefix) or by path.
func (r Result) Find(query string) (Instance, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Instance{}, ErrInstanceNotFound
	}
	for _, inst := range r.Instances {
		if strings.EqualFold(inst.Name, q) ||
			strings.EqualFold(strings.TrimPrefix(inst.Name, ExternalPrefix), q) {
			return inst, nil
		}
	}
	for _, inst := range r.Instances {
		if util.SamePath(inst.Path, q) {
			return inst, nil
		}
	}
	return Instance{}, ErrInstanceNotFound
}
