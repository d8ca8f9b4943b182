package models

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Run identifies one initialization of a source: the profile plus the UTC
// init instant. Runs carry no mutable state; everything about "where we
// are" in a run is inferred from the filesystem and the provider.
type Run struct {
	Profile  SourceProfile
	InitTime time.Time
}

// NewRun builds a run, normalizing the init time to UTC.
func NewRun(profile SourceProfile, initTime time.Time) Run {
	return Run{Profile: profile, InitTime: initTime.UTC()}
}

// Next returns the immediately following run of the same source.
func (r Run) Next() Run {
	return Run{Profile: r.Profile, InitTime: r.InitTime.Add(r.Profile.UpdateInterval)}
}

// Equal reports whether two runs are the same initialization of the same
// source instance.
func (r Run) Equal(other Run) bool {
	return r.Profile.Name == other.Profile.Name &&
		r.Profile.Member == other.Profile.Member &&
		r.InitTime.Equal(other.InitTime)
}

// Before orders runs by init time.
func (r Run) Before(other Run) bool {
	return r.InitTime.Before(other.InitTime)
}

// LocalDir returns the run's download directory:
// basePath/source/YYYY/MM/DD/HH.
func (r Run) LocalDir(basePath string) string {
	return filepath.Join(basePath, r.Profile.Name, r.InitTime.Format("2006"),
		r.InitTime.Format("01"), r.InitTime.Format("02"), r.InitTime.Format("15"))
}

// ArtifactPath returns the final per-run artifact location.
func (r Run) ArtifactPath(basePath string) string {
	return filepath.Join(r.LocalDir(basePath), r.Profile.OutputFile)
}

// Targets returns the ordered file targets the run is expected to produce.
// Order matters for polling priority only; readiness is checked per target.
func (r Run) Targets() []FileTarget {
	offsets := r.Profile.Offsets(r.InitTime.Hour())
	targets := make([]FileTarget, 0, len(offsets))
	for _, offset := range offsets {
		targets = append(targets, FileTarget{Run: r, Offset: offset})
	}
	return targets
}

func (r Run) String() string {
	name := r.Profile.Name
	if r.Profile.Member != "" {
		name += "/" + r.Profile.Member
	}
	return fmt.Sprintf("%s %s", name, r.InitTime.Format("2006-01-02T15Z"))
}

// FileTarget is one file of a run: the run identity plus a forecast offset.
// Remote locations and the local path are derived, never stored.
type FileTarget struct {
	Run    Run
	Offset int
}

// RemoteFile is the provider-side file name.
func (t FileTarget) RemoteFile() string {
	return t.Run.Profile.FileName(t.Run.InitTime.Hour(), t.Offset)
}

// RemotePath is the path of the file under the provider's archive tree,
// used for existence probes.
func (t FileTarget) RemotePath() string {
	return t.Run.Profile.RemoteDir(t.Run.InitTime) + "/" + t.RemoteFile()
}

// Query builds the subsetting endpoint parameters for retrieving the file.
func (t FileTarget) Query() url.Values {
	v := t.Run.Profile.SubsetQuery()
	v.Set("file", t.RemoteFile())
	v.Set("dir", t.Run.Profile.RemoteDir(t.Run.InitTime))
	return v
}

// LocalPath is the deterministic download destination. The raw suffix is
// appended when the provider name does not already carry it, so targets of
// one run never collide.
func (t FileTarget) LocalPath(basePath string) string {
	name := t.RemoteFile()
	if !strings.HasSuffix(name, ".grib2") {
		name += ".grib2"
	}
	return filepath.Join(t.Run.LocalDir(basePath), name)
}

func (t FileTarget) String() string {
	return fmt.Sprintf("%s f%03d", t.Run, t.Offset)
}
