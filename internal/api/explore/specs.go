package explore

import (
	"github.com/paulmach/orb/geojson"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/MU-CMAP/narrative-geographies/internal/config"
	"github.com/MU-CMAP/narrative-geographies/internal/service"
)

// BuildSpecs translates the configured overlay registry into the specs a
// session's overlay controllers run on, resolving the named click
// behaviors into callbacks.
func BuildSpecs(overlays []config.Overlay) []atlas.OverlaySpec {
	specs := make([]atlas.OverlaySpec, 0, len(overlays))
	for _, ov := range overlays {
		spec := atlas.OverlaySpec{
			SourceID: ov.Source,
			LayerID:  ov.Layer,
			DataURL:  ov.Data,
			Layer: atlas.LayerDef{
				ID:     ov.Layer,
				Type:   ov.Type,
				Source: ov.Source,
				Paint:  ov.Paint,
			},
		}
		for _, m := range ov.Modes {
			if mode, err := atlas.ParseViewMode(m); err == nil {
				spec.Modes = append(spec.Modes, mode)
			}
		}
		if ov.Click == "select-story" {
			spec.OnClick = selectStory
		}
		specs = append(specs, spec)
	}
	return specs
}

// selectStory is the built-in click behavior for the story overlay: the
// clicked marker becomes the selected story and the panel opens.
func selectStory(s *atlas.Session, f *geojson.Feature) {
	if f == nil {
		return
	}
	id := service.FeatureID(f)
	if id == "" {
		return
	}
	s.SelectStory(atlas.Ref{
		ID:   id,
		Name: f.Properties.MustString("title", id),
	})
}
