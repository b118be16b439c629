package service

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MU-CMAP/narrative-geographies/internal/config"
)

// OverlayService exposes the configured overlay registry enriched with
// live stats from the backing data files. Overlays are defined in the
// site configuration, not created at runtime, so the service is
// read-only; Refresh re-reads the file stats.
type OverlayService struct {
	overlays []config.Overlay
	geo      *GeoDataService
	log      *slog.Logger

	mu    sync.RWMutex
	infos map[string]OverlayInfo
}

// NewOverlayService builds the catalog from the configured overlays.
func NewOverlayService(overlays []config.Overlay, geo *GeoDataService, log *slog.Logger) *OverlayService {
	s := &OverlayService{
		overlays: overlays,
		geo:      geo,
		log:      log,
		infos:    make(map[string]OverlayInfo),
	}
	s.Refresh()
	return s
}

// List returns all overlays in configuration order.
func (s *OverlayService) List() []OverlayInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]OverlayInfo, 0, len(s.overlays))
	for _, ov := range s.overlays {
		result = append(result, s.infos[ov.ID])
	}
	return result
}

// Get returns an overlay by ID.
func (s *OverlayService) Get(id string) (OverlayInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.infos[id]
	return info, ok
}

// Refresh re-reads the backing file stats for every overlay.
func (s *OverlayService) Refresh() {
	infos := make(map[string]OverlayInfo, len(s.overlays))
	for _, ov := range s.overlays {
		info := OverlayInfo{
			ID:       ov.ID,
			SourceID: ov.Source,
			LayerID:  ov.Layer,
			Data:     ov.Data,
			Type:     ov.Type,
			Modes:    ov.Modes,
			Click:    ov.Click,
			Title:    titleFromID(ov.ID),
		}
		if name, ok := localDataFile(ov.Data); ok {
			if stats, err := s.geo.Stats(name); err == nil {
				info.FeatureCount = stats.Count
			} else {
				s.log.Warn("overlay data unreadable", "overlay", ov.ID, "file", name, "error", err)
			}
			if path, err := s.geo.FilePath(name); err == nil {
				if fi, err := os.Stat(path); err == nil {
					info.Size = formatSize(fi.Size())
				}
			}
		}
		infos[ov.ID] = info
	}

	s.mu.Lock()
	s.infos = infos
	s.mu.Unlock()
}

// localDataFile extracts the bare file name from a /geo/ data URL.
// Remote (http) overlay data has no local stats.
func localDataFile(dataURL string) (string, bool) {
	if strings.HasPrefix(dataURL, "http://") || strings.HasPrefix(dataURL, "https://") {
		return "", false
	}
	name := filepath.Base(dataURL)
	if name == "." || name == "/" {
		return "", false
	}
	return name, true
}

// titleFromID turns an overlay id into a display name.
func titleFromID(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return id
	}
	return strings.Join(words, " ")
}

// Specs returns the configured overlays in registry order, for callers
// that build engine-facing specs.
func (s *OverlayService) Specs() []config.Overlay {
	return s.overlays
}
