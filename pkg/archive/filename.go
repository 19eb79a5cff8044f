// Package archive is the thin collaborator between the on-disk l1b product
// archive and the pipeline: it decodes product filenames, finds the latest
// files for an orbit, and reads per-file records into plain arrays.
package archive

import(
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// A Filename holds everything the archive naming convention encodes,
// e.g. mvn_iuv_l1b_apoapse-orbit03453-muv_20160708T051356_v13_r01.fits
type Filename struct {
	Name       string
	Spacecraft string
	Instrument string
	Level      string
	Segment    string
	Orbit      Orbit
	Channel    string
	Timestamp  time.Time
	Version    int
	Revision   int
	Extension  string
}

func ParseFilename(name string) (Filename, error) {
	fn := Filename{Name: name}

	dot := strings.Index(name, ".")
	if dot < 0 {
		return fn, fmt.Errorf("filename %q: no extension", name)
	}
	stem := name[:dot]
	fn.Extension = name[dot+1:]

	parts := strings.Split(stem, "_")
	if len(parts) != 7 {
		return fn, fmt.Errorf("filename %q: want 7 underscore fields, got %d", name, len(parts))
	}
	fn.Spacecraft, fn.Instrument, fn.Level = parts[0], parts[1], parts[2]

	desc := strings.Split(parts[3], "-")
	orbitIdx := -1
	for i, d := range desc {
		if strings.HasPrefix(d, "orbit") {
			orbitIdx = i
			break
		}
	}
	if orbitIdx < 0 || orbitIdx == len(desc)-1 {
		return fn, fmt.Errorf("filename %q: no orbit-channel description", name)
	}
	fn.Segment = strings.Join(desc[:orbitIdx], "-")
	orbit, err := strconv.Atoi(strings.TrimPrefix(desc[orbitIdx], "orbit"))
	if err != nil {
		return fn, fmt.Errorf("filename %q: orbit: %v", name, err)
	}
	fn.Orbit = Orbit(orbit)
	fn.Channel = desc[orbitIdx+1]

	if fn.Timestamp, err = time.Parse("20060102T150405", parts[4]); err != nil {
		return fn, fmt.Errorf("filename %q: timestamp: %v", name, err)
	}
	if fn.Version, err = strconv.Atoi(strings.TrimPrefix(parts[5], "v")); err != nil {
		return fn, fmt.Errorf("filename %q: version: %v", name, err)
	}
	if fn.Revision, err = strconv.Atoi(strings.TrimPrefix(parts[6], "r")); err != nil {
		return fn, fmt.Errorf("filename %q: revision: %v", name, err)
	}

	return fn, nil
}

// FindLatestFiles returns the paths of the latest version/revision of each
// timestamped product for one orbit/segment/channel, in timestamp order.
// An orbit with no files is not an error; the caller gets an empty slice.
func FindLatestFiles(dataDir string, orbit Orbit, segment, channel string) ([]string, error) {
	pattern := filepath.Join(dataDir, orbit.Block(),
		fmt.Sprintf("*_%s-%s-%s_*.fits", segment, orbit.Code(), channel))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %v", pattern, err)
	}

	latest := map[time.Time]Filename{}
	paths := map[time.Time]string{}
	for _, path := range matches {
		fn, err := ParseFilename(filepath.Base(path))
		if err != nil {
			continue // junk in the archive dir
		}
		best, seen := latest[fn.Timestamp]
		if !seen || fn.Version > best.Version ||
			(fn.Version == best.Version && fn.Revision > best.Revision) {
			latest[fn.Timestamp] = fn
			paths[fn.Timestamp] = path
		}
	}

	stamps := make([]time.Time, 0, len(latest))
	for ts := range latest {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	out := make([]string, len(stamps))
	for i, ts := range stamps {
		out[i] = paths[ts]
	}
	return out, nil
}
