package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

const (
	storiesFile    = "stories.geojson"
	boundariesFile = "boundaries.geojson"
)

// GeoDataService loads and caches the GeoJSON files in the data
// directory: the story markers, the community boundaries and the
// structure footprints the overlays render.
type GeoDataService struct {
	dataDir string
	log     *slog.Logger

	mu    sync.RWMutex
	cache map[string]cachedCollection
}

type cachedCollection struct {
	fc      *geojson.FeatureCollection
	modTime time.Time
	size    int64
}

// NewGeoDataService creates a geodata service over dataDir.
func NewGeoDataService(dataDir string, log *slog.Logger) *GeoDataService {
	return &GeoDataService{
		dataDir: dataDir,
		log:     log,
		cache:   make(map[string]cachedCollection),
	}
}

// Dir returns the data directory path.
func (s *GeoDataService) Dir() string {
	return s.dataDir
}

// FilePath validates a bare file name and returns its absolute path, for
// handlers that serve the raw file.
func (s *GeoDataService) FilePath(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	path := filepath.Join(s.dataDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// Load returns the named feature collection, re-reading the file when it
// changed on disk. Names are bare file names; paths are rejected.
func (s *GeoDataService) Load(name string) (*geojson.FeatureCollection, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dataDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.fc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = cachedCollection{fc: fc, modTime: info.ModTime(), size: info.Size()}
	s.mu.Unlock()
	s.log.Debug("geodata loaded", "file", name, "features", len(fc.Features))
	return fc, nil
}

// Stats summarizes the named feature collection.
func (s *GeoDataService) Stats(name string) (FeatureStats, error) {
	fc, err := s.Load(name)
	if err != nil {
		return FeatureStats{}, err
	}
	stats := FeatureStats{
		Count:         len(fc.Features),
		GeometryTypes: map[string]int{},
	}
	var bound orb.Bound
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		stats.GeometryTypes[f.Geometry.GeoJSONType()]++
		if i == 0 {
			bound = f.Geometry.Bound()
		} else {
			bound = bound.Union(f.Geometry.Bound())
		}
	}
	if len(fc.Features) > 0 {
		stats.BBox = [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}
	}
	return stats, nil
}

// Stories returns the story records from the story marker file, sorted by
// id. A story without a community property is attributed to the boundary
// polygon containing its marker, when one does.
func (s *GeoDataService) Stories() ([]StoryRecord, error) {
	fc, err := s.Load(storiesFile)
	if err != nil {
		return nil, err
	}
	stories := make([]StoryRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt := markerPoint(f.Geometry)
		rec := StoryRecord{
			ID:        FeatureID(f),
			Title:     f.Properties.MustString("title", ""),
			Community: f.Properties.MustString("community", ""),
			Theme:     f.Properties.MustString("theme", ""),
			MediaType: f.Properties.MustString("mediaType", ""),
			Date:      f.Properties.MustString("date", ""),
			Summary:   f.Properties.MustString("summary", ""),
			Lon:       pt[0],
			Lat:       pt[1],
		}
		if rec.Community == "" {
			if name, ok := s.CommunityAt(pt); ok {
				rec.Community = name
			}
		}
		stories = append(stories, rec)
	}
	sort.Slice(stories, func(i, j int) bool { return stories[i].ID < stories[j].ID })
	return stories, nil
}

// StoryByID returns one story record.
func (s *GeoDataService) StoryByID(id string) (StoryRecord, bool, error) {
	stories, err := s.Stories()
	if err != nil {
		return StoryRecord{}, false, err
	}
	for _, st := range stories {
		if st.ID == id {
			return st, true, nil
		}
	}
	return StoryRecord{}, false, nil
}

// CommunityAt returns the name of the boundary polygon containing pt.
func (s *GeoDataService) CommunityAt(pt orb.Point) (string, bool) {
	fc, err := s.Load(boundariesFile)
	if err != nil {
		return "", false
	}
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.Bound().Contains(pt) {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if planar.PolygonContains(g, pt) {
				return f.Properties.MustString("name", FeatureID(f)), true
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(g, pt) {
				return f.Properties.MustString("name", FeatureID(f)), true
			}
		}
	}
	return "", false
}

// List returns the servable GeoJSON files in the data directory.
func (s *GeoDataService) List() ([]DataFile, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []DataFile{}, nil
		}
		return nil, err
	}

	extToType := map[string]string{
		".geojson": "GeoJSON",
		".json":    "GeoJSON",
	}

	var files []DataFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		fileType, ok := extToType[ext]
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, DataFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}
	return files, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid data file name %q", name)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".geojson" && ext != ".json" {
		return fmt.Errorf("unsupported data file %q", name)
	}
	return nil
}

// markerPoint reduces a geometry to a single marker coordinate.
func markerPoint(g orb.Geometry) orb.Point {
	if g == nil {
		return orb.Point{}
	}
	if pt, ok := g.(orb.Point); ok {
		return pt
	}
	return g.Bound().Center()
}

// FeatureID normalizes a GeoJSON feature id, falling back to the "id"
// property.
func FeatureID(f *geojson.Feature) string {
	switch v := f.ID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return f.Properties.MustString("id", "")
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
