package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/MU-CMAP/narrative-geographies/internal/config"
)

// BuildFeatureIndex flattens every overlay's feature collection into the
// features table so the diagnostics console can query the mapped data
// with SQL. The table is rebuilt from scratch on each call; the GeoJSON
// files stay the source of truth.
func BuildFeatureIndex(ctx context.Context, database *sql.DB, geo *GeoDataService, overlays []config.Overlay, log *slog.Logger) error {
	const schema = `
		CREATE OR REPLACE TABLE features (
			overlay       VARCHAR,
			feature_id    VARCHAR,
			name          VARCHAR,
			geometry_type VARCHAR,
			lon           DOUBLE,
			lat           DOUBLE,
			properties    JSON
		)`
	if _, err := database.ExecContext(ctx, schema); err != nil {
		return err
	}

	const insert = `
		INSERT INTO features (overlay, feature_id, name, geometry_type, lon, lat, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	indexed := 0
	for _, ov := range overlays {
		name, ok := localDataFile(ov.Data)
		if !ok {
			continue
		}
		fc, err := geo.Load(name)
		if err != nil {
			log.Warn("feature index skipping overlay", "overlay", ov.ID, "error", err)
			continue
		}
		for _, f := range fc.Features {
			if f.Geometry == nil {
				continue
			}
			center := f.Geometry.Bound().Center()
			props, err := json.Marshal(f.Properties)
			if err != nil {
				props = []byte("{}")
			}
			displayName := f.Properties.MustString("name", f.Properties.MustString("title", ""))
			if _, err := database.ExecContext(ctx, insert,
				ov.ID,
				FeatureID(f),
				displayName,
				f.Geometry.GeoJSONType(),
				center[0],
				center[1],
				string(props),
			); err != nil {
				return err
			}
			indexed++
		}
	}
	log.Info("feature index built", "features", indexed)
	return nil
}
