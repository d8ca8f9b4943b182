package models

import (
	"fmt"
	"net/url"
	"sort"
	"time"
)

// SourceProfile is the immutable description of one forecast data source:
// how its files and run directories are named, which forecast offsets a run
// produces, and the timing constants that drive availability polling.
type SourceProfile struct {
	Name     string // registry key, also the directory name under the base path
	Endpoint string // subsetting CGI script on the provider ("filter_gfs_0p25_1hr.pl", ...)

	// CheckName is the path segment under the provider's static archive tree
	// used for existence probes. Usually equal to DirToken ("gfs", "nam"),
	// but not always ("gens" for the ensemble).
	CheckName string

	// DirToken is the run-directory prefix on the provider index page.
	// Run directories look like "gfs.2023040106" or "nam.20230401".
	DirToken string

	// HourlyDirs is true when run directories carry the init hour
	// (10-digit date+hour) rather than the date alone (8-digit).
	HourlyDirs bool

	// Offsets returns the forecast lead hours a run initialized at the given
	// hour is expected to produce, in ascending order.
	Offsets func(initHour int) []int

	// FileName returns the raw file name for one (init hour, offset) pair.
	FileName func(initHour, offset int) string

	Levels    []string // lev_* selection flags for the subsetting endpoint
	Variables []string // var_* selection flags

	UpdateInterval    time.Duration // time between successive runs
	FirstDelay        time.Duration // earliest time after init that the first file may appear
	InterFileInterval time.Duration // typical production cadence, used as the poll backoff
	MaxRunDuration    time.Duration // budget after the anchor before the run is presumed abandoned

	OutputFile  string // final artifact name within the run directory
	RawPrefix   string // raw filename prefix handed to the converter
	ConvertMode string // converter mode flag, empty for the default

	Member string // ensemble member id, empty for deterministic sources
}

// Query parameters for the geographic subset requested from the provider.
const (
	domainLeftLon   = -126
	domainRightLon  = -66
	domainTopLat    = 50
	domainBottomLat = 24
)

// RemoteDir returns the provider-side run directory for an init time,
// with a leading slash.
func (p *SourceProfile) RemoteDir(t time.Time) string {
	t = t.UTC()
	if p.Name == "gefs" {
		return fmt.Sprintf("/gefs.%s/%02d/pgrb2ap5", t.Format("20060102"), t.Hour())
	}
	if p.HourlyDirs {
		return fmt.Sprintf("/%s.%s", p.DirToken, t.Format("2006010215"))
	}
	dir := fmt.Sprintf("/%s.%s", p.DirToken, t.Format("20060102"))
	if p.DirToken == "hrrr" {
		dir += "/conus"
	}
	return dir
}

// InitHours returns the run initialization hours of one UTC day, derived
// from the update interval.
func (p *SourceProfile) InitHours() []int {
	step := int(p.UpdateInterval / time.Hour)
	if step <= 0 {
		step = 1
	}
	hours := make([]int, 0, 24/step)
	for h := 0; h < 24; h += step {
		hours = append(hours, h)
	}
	return hours
}

// SubsetQuery builds the level/variable/bounding-box parameters sent to the
// subsetting endpoint. The file and dir parameters are added per target.
func (p *SourceProfile) SubsetQuery() url.Values {
	v := url.Values{}
	v.Set("subregion", "")
	v.Set("leftlon", fmt.Sprint(domainLeftLon))
	v.Set("rightlon", fmt.Sprint(domainRightLon))
	v.Set("toplat", fmt.Sprint(domainTopLat))
	v.Set("bottomlat", fmt.Sprint(domainBottomLat))
	for _, lev := range p.Levels {
		v.Set("lev_"+lev, "on")
	}
	for _, vr := range p.Variables {
		v.Set("var_"+vr, "on")
	}
	return v
}

func hourRange(stop int) []int {
	return hourRangeStep(0, stop, 1)
}

func hourRangeStep(start, stop, step int) []int {
	var hours []int
	for h := start; h < stop; h += step {
		hours = append(hours, h)
	}
	return hours
}

var standardLevels = []string{"2_m_above_ground", "10_m_above_ground", "entire_atmosphere", "surface"}
var standardVariables = []string{"DSWRF", "TCDC", "TMP", "UGRD", "VGRD"}

// GFS0p25 is the 0.25 degree Global Forecast System, hourly out to 120h.
var GFS0p25 = SourceProfile{
	Name:       "gfs_0p25",
	Endpoint:   "filter_gfs_0p25_1hr.pl",
	CheckName:  "gfs",
	DirToken:   "gfs",
	HourlyDirs: true,
	Offsets: func(initHour int) []int {
		hrs := hourRange(120)
		hrs = append(hrs, hourRangeStep(120, 240, 3)...)
		return append(hrs, hourRangeStep(240, 385, 12)...)
	},
	FileName: func(initHour, offset int) string {
		return fmt.Sprintf("gfs.t%02dz.pgrb2.0p25.f%03d", initHour, offset)
	},
	Levels:            standardLevels,
	Variables:         standardVariables,
	UpdateInterval:    6 * time.Hour,
	FirstDelay:        200 * time.Minute,
	InterFileInterval: 60 * time.Second,
	MaxRunDuration:    100 * time.Minute,
	OutputFile:        "gfs_0p25.nc",
	RawPrefix:         "gfs",
}

// NAMConus is the 12km North American Mesoscale model over CONUS.
var NAMConus = SourceProfile{
	Name:      "nam_12km",
	Endpoint:  "filter_nam.pl",
	CheckName: "nam",
	DirToken:  "nam",
	Offsets: func(initHour int) []int {
		return append(hourRange(36), hourRangeStep(36, 85, 3)...)
	},
	FileName: func(initHour, offset int) string {
		return fmt.Sprintf("nam.t%02dz.awphys%02d.tm00.grib2", initHour, offset)
	},
	Levels: []string{"2_m_above_ground", "10_m_above_ground",
		`entire_atmosphere_\(considered_as_a_single_layer\)`, "surface"},
	Variables:         standardVariables,
	UpdateInterval:    6 * time.Hour,
	FirstDelay:        90 * time.Minute,
	InterFileInterval: 60 * time.Second,
	MaxRunDuration:    80 * time.Minute,
	OutputFile:        "nam_12km.nc",
	RawPrefix:         "nam",
}

// RAP is the Rapid Refresh model. Runs at 03, 09, 15 and 21Z extend to 39h.
var RAP = SourceProfile{
	Name:      "rap",
	Endpoint:  "filter_rap.pl",
	CheckName: "rap",
	DirToken:  "rap",
	Offsets: func(initHour int) []int {
		switch initHour {
		case 3, 9, 15, 21:
			return hourRange(40)
		default:
			return hourRange(22)
		}
	},
	FileName: func(initHour, offset int) string {
		return fmt.Sprintf("rap.t%02dz.awp130pgrbf%02d.grib2", initHour, offset)
	},
	Levels:            standardLevels,
	Variables:         []string{"TCDC", "TMP", "UGRD", "VGRD"},
	UpdateInterval:    time.Hour,
	FirstDelay:        50 * time.Minute,
	InterFileInterval: 60 * time.Second,
	MaxRunDuration:    30 * time.Minute,
	OutputFile:        "rap.nc",
	RawPrefix:         "rap",
}

// HRRRHourly is the High-Resolution Rapid Refresh surface fields.
var HRRRHourly = SourceProfile{
	Name:      "hrrr_hourly",
	Endpoint:  "filter_hrrr_2d.pl",
	CheckName: "hrrr",
	DirToken:  "hrrr",
	Offsets: func(initHour int) []int {
		switch initHour {
		case 0, 6, 12, 18:
			return hourRange(37)
		default:
			return hourRange(19)
		}
	},
	FileName: func(initHour, offset int) string {
		return fmt.Sprintf("hrrr.t%02dz.wrfsfcf%02d.grib2", initHour, offset)
	},
	Levels:            standardLevels,
	Variables:         []string{"DSWRF", "VBDSF", "VDDSF", "TCDC", "TMP", "UGRD", "VGRD"},
	UpdateInterval:    time.Hour,
	FirstDelay:        45 * time.Minute,
	InterFileInterval: 120 * time.Second,
	MaxRunDuration:    70 * time.Minute,
	OutputFile:        "hrrr_hourly.nc",
	RawPrefix:         "hrrr",
}

// HRRRSubhourly is the 15-minute HRRR output. The converter is told to keep
// only the averaged fields plus the instantaneous TMP and VDDSF.
var HRRRSubhourly = SourceProfile{
	Name:      "hrrr_subhourly",
	Endpoint:  "filter_hrrr_sub.pl",
	CheckName: "hrrr",
	DirToken:  "hrrr",
	Offsets: func(initHour int) []int {
		return hourRange(19)
	},
	FileName: func(initHour, offset int) string {
		return fmt.Sprintf("hrrr.t%02dz.wrfsubhf%02d.grib2", initHour, offset)
	},
	Levels:            standardLevels,
	Variables:         []string{"DSWRF", "VBDSF", "VDDSF", "TMP", "UGRD", "VGRD"},
	UpdateInterval:    time.Hour,
	FirstDelay:        45 * time.Minute,
	InterFileInterval: 120 * time.Second,
	MaxRunDuration:    50 * time.Minute,
	OutputFile:        "hrrr_subhourly.nc",
	RawPrefix:         "hrrr",
	ConvertMode:       "-match ave|TMP|VDDSF",
}

// gefsBase is the half degree Global Ensemble Forecast System. Each member
// is fetched on its own independent schedule; use GEFSMembers.
var gefsBase = SourceProfile{
	Name:      "gefs",
	Endpoint:  "filter_gens_0p50.pl",
	CheckName: "gens",
	DirToken:  "gefs",
	Offsets: func(initHour int) []int {
		return append(hourRangeStep(0, 192, 3), hourRangeStep(192, 385, 6)...)
	},
	Levels:            standardLevels,
	Variables:         standardVariables,
	UpdateInterval:    6 * time.Hour,
	FirstDelay:        280 * time.Minute,
	InterFileInterval: 60 * time.Second,
	MaxRunDuration:    60 * time.Minute,
}

// GEFSMemberIDs lists the ensemble statistics and perturbation members.
func GEFSMemberIDs() []string {
	ids := []string{"avg", "c00", "spr"}
	for i := 1; i <= 20; i++ {
		ids = append(ids, fmt.Sprintf("p%02d", i))
	}
	return ids
}

// GEFSMembers expands the ensemble source into one independent profile per
// member. Each instance drives its own scheduler.
func GEFSMembers() []SourceProfile {
	ids := GEFSMemberIDs()
	members := make([]SourceProfile, 0, len(ids))
	for _, id := range ids {
		m := gefsBase
		member := id
		m.Member = member
		m.FileName = func(initHour, offset int) string {
			return fmt.Sprintf("ge%s.t%02dz.pgrb2a.0p50.f%03d", member, initHour, offset)
		}
		m.OutputFile = fmt.Sprintf("gefs_%s.nc", member)
		m.RawPrefix = "ge" + member
		members = append(members, m)
	}
	return members
}

var registry = map[string]SourceProfile{
	GFS0p25.Name:       GFS0p25,
	NAMConus.Name:      NAMConus,
	RAP.Name:           RAP,
	HRRRHourly.Name:    HRRRHourly,
	HRRRSubhourly.Name: HRRRSubhourly,
	gefsBase.Name:      gefsBase,
}

// ProfileByName looks up a source profile by its registry name.
func ProfileByName(name string) (SourceProfile, bool) {
	p, ok := registry[name]
	return p, ok
}

// ProfileNames returns the registered source names in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsEnsemble reports whether the named source expands to per-member profiles.
func IsEnsemble(name string) bool {
	return name == gefsBase.Name
}
