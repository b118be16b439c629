// Package service contains the geodata, overlay catalog and eventing
// services behind the narrative-geographies site.
package service

// StoryRecord is a story as surfaced by the API and the story panel.
// Single source of truth: Huma reads the tags for OpenAPI + validation,
// the form/card renderers read the custom tags.
//
// Custom tags:
//
//	signal:"name"              — override Datastar signal suffix (default: lowercase field name)
//	input:"color|sse"          — force input type (color picker, SSE-loaded select)
//	sse:"/url,element-id"      — SSE endpoint + target element ID for dynamic selects
//	card:"title|meta|badge|id" — card layout role (title, meta line, badge, root div id)
type StoryRecord struct {
	ID        string  `json:"id" doc:"Unique story identifier" example:"story-bronzeville-blues" card:"id"`
	Title     string  `json:"title" doc:"Story title" example:"Bronzeville After the Freeway" card:"title"`
	Community string  `json:"community,omitempty" doc:"Community the story belongs to" example:"Bronzeville" card:"meta"`
	Theme     string  `json:"theme,omitempty" doc:"Thematic tag" example:"displacement" card:"badge"`
	MediaType string  `json:"mediaType,omitempty" doc:"Primary media type" example:"audio" card:"meta"`
	Date      string  `json:"date,omitempty" doc:"Period or date label" example:"1962"`
	Summary   string  `json:"summary,omitempty" doc:"One-paragraph summary"`
	Lon       float64 `json:"lon" doc:"Marker longitude" example:"-87.9177"`
	Lat       float64 `json:"lat" doc:"Marker latitude" example:"43.0569"`
}

// StoryFilter narrows a story search. The generated filter form renders
// from these tags.
type StoryFilter struct {
	Theme     string `json:"theme,omitempty" doc:"Thematic tag to match" example:"displacement" input:"sse" sse:"/api/stories/theme-options,theme-select"`
	MediaType string `json:"mediaType,omitempty" enum:",photo,audio,video,text" doc:"Primary media type to match" example:"video" signal:"mediatype"`
	DateRange string `json:"dateRange,omitempty" doc:"Period label to match" example:"1960s" signal:"daterange"`
}

// Matches reports whether a story passes the filter. Empty fields match
// everything.
func (f StoryFilter) Matches(s StoryRecord) bool {
	if f.Theme != "" && f.Theme != s.Theme {
		return false
	}
	if f.MediaType != "" && f.MediaType != s.MediaType {
		return false
	}
	if f.DateRange != "" && f.DateRange != s.Date {
		return false
	}
	return true
}

// OverlayInfo describes one configured overlay plus the live stats of its
// backing data file.
type OverlayInfo struct {
	ID           string   `json:"id" doc:"Overlay identifier" example:"stories" card:"id"`
	SourceID     string   `json:"sourceId" doc:"Engine source identifier" example:"stories-src"`
	LayerID      string   `json:"layerId" doc:"Engine layer identifier" example:"stories-circle" card:"meta"`
	Data         string   `json:"data" doc:"Feature collection URL" example:"/geo/stories.geojson" card:"meta"`
	Type         string   `json:"type" enum:"fill,circle,line" doc:"Layer paint type" example:"circle" card:"badge"`
	Modes        []string `json:"modes,omitempty" doc:"View modes showing this overlay (empty = all)"`
	Click        string   `json:"click,omitempty" doc:"Built-in click behavior" example:"select-story"`
	FeatureCount int      `json:"featureCount" doc:"Features in the backing file" example:"3"`
	Size         string   `json:"size" doc:"Human-readable file size" example:"1.2 KB"`
	Title        string   `json:"title" doc:"Display name" example:"Stories" card:"title"`
}

// DataFile is a servable GeoJSON file in the data directory.
type DataFile struct {
	Name     string `json:"name" doc:"File name" example:"stories.geojson" card:"title"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 KB" card:"meta"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON" card:"badge"`
}

// FeatureStats summarizes one feature collection.
type FeatureStats struct {
	Count         int            `json:"count" doc:"Feature count"`
	GeometryTypes map[string]int `json:"geometryTypes" doc:"Feature count per geometry type"`
	BBox          [4]float64     `json:"bbox" doc:"West, south, east, north"`
}

// ContentQuery is a raw content-store query for the diagnostics console.
type ContentQuery struct {
	Query string `json:"query" required:"true" minLength:"1" doc:"Content query in the store's query language" example:"*[_type == \"story\"]{_id, title}"`
}

// DBQuery is a read-only SQL query for the diagnostics console.
type DBQuery struct {
	SQL string `json:"sql" required:"true" minLength:"1" doc:"SQL query against the feature index" example:"SELECT overlay, count(*) FROM features GROUP BY overlay"`
}
