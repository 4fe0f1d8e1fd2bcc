// Package contentstore implements the versioned, self-describing on-disk
// record of full Node payloads. Each write is atomic
// (write-to-temp, fsync, rename) so a crash never leaves a torn file
// visible to readers, and history is append-only: prior version files are
// retained forever once written.
package contentstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/Whamp/sessionkg/internal/storeerr"
	"github.com/Whamp/sessionkg/internal/types"
)

// Extension is the record extension used for content-store files. JSON is
// self-describing via its field names, and unknown fields are preserved
// across read/write via a raw-extras side channel.
const Extension = "json"

// pathPattern validates "<YYYY>/<MM>/<16hex-id>-v<ver>.<ext>": 4-digit
// year, 2-digit month 01-12, 16-hex id, positive version.
var pathPattern = regexp.MustCompile(`^(\d{4})/(0[1-9]|1[0-2])/([a-f0-9]{16})-v([1-9][0-9]*)\.` + Extension + `$`)

// ParsedPath is the decomposition of a content-store relative path.
type ParsedPath struct {
	ID      string
	Version int
	Year    string
	Month   string
}

// ParsePath validates and decomposes a path relative to the store root.
// Returns (nil, nil) when the path does not match the expected shape —
// callers use this to skip torn/foreign files during directory scans.
func ParsePath(relPath string) (*ParsedPath, error) {
	relPath = filepath.ToSlash(relPath)
	m := pathPattern.FindStringSubmatch(relPath)
	if m == nil {
		return nil, nil
	}
	version, err := strconv.Atoi(m[4])
	if err != nil || version <= 0 {
		return nil, nil
	}
	return &ParsedPath{ID: m[3], Version: version, Year: m[1], Month: m[2]}, nil
}

// VersionEntry is one row of listVersions' result.
type VersionEntry struct {
	Version int
	Path    string
}

// Store is a versioned, year/month-partitioned content store rooted at Dir.
type Store struct {
	Dir string
}

// New creates a Store rooted at dir. The directory is created lazily on
// first write, not here — Open-time failures should surface from the
// caller's actual I/O, not a premature mkdir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// record is the on-disk shape: the Node plus a catch-all for fields future
// versions add that this build doesn't know about, so re-serializing an
// old-format file never silently drops data.
type record struct {
	types.Node
	Extra map[string]json.RawMessage `json:"-"`
}

func (r record) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(r.Node)
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func (r *record) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &r.Node); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	known := knownNodeFields()
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !known[k] {
			extra[k] = v
		}
	}
	r.Extra = extra
	return nil
}

var knownFieldsCache map[string]bool

func knownNodeFields() map[string]bool {
	if knownFieldsCache != nil {
		return knownFieldsCache
	}
	// The sample must populate every omitempty top-level field, or its key
	// would be missing from the marshaled probe and misclassified as
	// unknown on read.
	score := 1.0
	when := time.Unix(0, 0)
	sample, _ := json.Marshal(types.Node{
		Signals:        "x",
		RelevanceScore: &score,
		LastAccessed:   &when,
		Archived:       true,
		Importance:     &score,
	})
	var m map[string]json.RawMessage
	_ = json.Unmarshal(sample, &m)
	known := make(map[string]bool, len(m))
	for k := range m {
		known[k] = true
	}
	knownFieldsCache = known
	return known
}

func pathFor(id string, version int, year, month string) string {
	return filepath.Join(year, month, fmt.Sprintf("%s-v%d.%s", id, version, Extension))
}

// pathForTimestamp derives the YEAR/MONTH partition from a node's
// metadata timestamp.
func pathForTimestamp(id string, version int, ts time.Time) string {
	return pathFor(id, version, fmt.Sprintf("%04d", ts.Year()), fmt.Sprintf("%02d", int(ts.Month())))
}

// Write persists node as a file, creating directories as needed and
// writing atomically (write-to-temp, fsync, rename). Versions are dense:
// writing version N requires that version N-1 is already on disk.
// Writing a version that already exists replaces that version's file.
// Returns the path written, relative to the store root.
func (s *Store) Write(node *types.Node) (string, error) {
	if node.ID == "" || node.Version <= 0 {
		return "", storeerr.Wrap("contentstore.Write", storeerr.ErrValidation)
	}
	if node.Version > 1 {
		latest, err := s.GetLatestVersion(node.ID)
		if err != nil {
			return "", err
		}
		if latest < node.Version-1 {
			return "", storeerr.Wrapf(storeerr.ErrInvariantViolation,
				"contentstore: version %d of %s requires version %d on disk", node.Version, node.ID, node.Version-1)
		}
	}
	rel := pathForTimestamp(node.ID, node.Version, node.Metadata.Timestamp)
	full := filepath.Join(s.Dir, rel)

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", storeerr.Wrapf(err, "contentstore: create directory %s", dir)
	}

	data, err := json.MarshalIndent(record{Node: *node, Extra: node.Extras}, "", "  ")
	if err != nil {
		return "", storeerr.Wrapf(err, "contentstore: marshal %s", node.ID)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(full)+".tmp.*")
	if err != nil {
		return "", storeerr.Wrapf(err, "contentstore: create temp file for %s", node.ID)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", storeerr.Wrapf(err, "contentstore: write %s", node.ID)
	}
	if err := tmp.Sync(); err != nil {
		return "", storeerr.Wrapf(err, "contentstore: fsync %s", node.ID)
	}
	if err := tmp.Close(); err != nil {
		return "", storeerr.Wrapf(err, "contentstore: close %s", node.ID)
	}
	if err := os.Rename(tmpPath, full); err != nil {
		return "", storeerr.Wrapf(err, "contentstore: rename into place %s", node.ID)
	}

	return rel, nil
}

// ReadFromPath reads and validates a node from a path relative to the store
// root. A structurally invalid file is rejected with ErrCorrupt rather than
// propagating a raw decode error, matching torn-write tolerance.
func (s *Store) ReadFromPath(relPath string) (*types.Node, error) {
	full := filepath.Join(s.Dir, relPath)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storeerr.Wrapf(storeerr.ErrNotFound, "contentstore: read %s", relPath)
		}
		return nil, storeerr.Wrapf(err, "contentstore: read %s", relPath)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, storeerr.Wrapf(storeerr.ErrCorrupt, "contentstore: decode %s: %v", relPath, err)
	}
	if rec.Node.ID == "" || rec.Node.Version <= 0 {
		return nil, storeerr.Wrapf(storeerr.ErrCorrupt, "contentstore: %s missing id/version", relPath)
	}
	node := rec.Node
	node.DataFile = relPath
	if len(rec.Extra) > 0 {
		node.Extras = rec.Extra
	}
	return &node, nil
}

// Read locates and reads (id, version) given the timestamp used to derive
// its YEAR/MONTH partition.
func (s *Store) Read(id string, version int, timestamp time.Time) (*types.Node, error) {
	return s.ReadFromPath(pathForTimestamp(id, version, timestamp))
}

// Exists reports whether (id, version) is present at the partition derived
// from timestamp.
func (s *Store) Exists(id string, version int, timestamp time.Time) bool {
	full := filepath.Join(s.Dir, pathForTimestamp(id, version, timestamp))
	_, err := os.Stat(full)
	return err == nil
}

// ListVersions scans every YEAR/MONTH directory for "{id}-v*.json" files
// and returns them ascending by version.
func (s *Store) ListVersions(id string) ([]VersionEntry, error) {
	all, err := s.ListAll()
	if err != nil {
		return nil, err
	}
	var entries []VersionEntry
	for _, rel := range all {
		pp, err := ParsePath(rel)
		if err != nil || pp == nil || pp.ID != id {
			continue
		}
		entries = append(entries, VersionEntry{Version: pp.Version, Path: rel})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// ListAll returns every content-store file path, relative to the store
// root, in the order the filesystem walk encounters them.
func (s *Store) ListAll() ([]string, error) {
	var paths []string
	err := filepath.Walk(s.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.Dir {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.Dir, path)
		if relErr != nil {
			return relErr
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, storeerr.Wrap("contentstore.ListAll", err)
	}
	return paths, nil
}

// GetLatestVersion returns the highest version number on disk for id, or 0
// if no version exists.
func (s *Store) GetLatestVersion(id string) (int, error) {
	versions, err := s.ListVersions(id)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, nil
	}
	return versions[len(versions)-1].Version, nil
}

// ReadLatest reads the highest version on disk for id.
func (s *Store) ReadLatest(id string) (*types.Node, error) {
	versions, err := s.ListVersions(id)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, storeerr.Wrapf(storeerr.ErrNotFound, "contentstore: no versions for %s", id)
	}
	return s.ReadFromPath(versions[len(versions)-1].Path)
}

// CreateNewVersion bumps node's version, appends its current version ref to
// PreviousVersions, applies patch, refreshes AnalyzedAt, and persists the
// result as a new file — a convenience wrapper, not a separate code path
// from Write.
func (s *Store) CreateNewVersion(existing *types.Node, patch func(*types.Node)) (*types.Node, error) {
	next := *existing
	next.PreviousVersions = append(append([]string{}, existing.PreviousVersions...), existing.VersionRef())
	next.Version = existing.Version + 1
	next.Metadata.AnalyzedAt = time.Now()
	if patch != nil {
		patch(&next)
	}
	path, err := s.Write(&next)
	if err != nil {
		return nil, err
	}
	next.DataFile = path
	return &next, nil
}
