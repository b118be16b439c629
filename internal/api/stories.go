package api

import (
	"context"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/MU-CMAP/narrative-geographies/internal/humastar"
	"github.com/MU-CMAP/narrative-geographies/internal/service"
	"github.com/MU-CMAP/narrative-geographies/internal/templates"
)

// StoriesHandler serves story records from the marker file plus the
// Datastar endpoints behind the story panel's filter form.
type StoriesHandler struct {
	humastar.Handler
	geo *service.GeoDataService
}

func NewStoriesHandler(geo *service.GeoDataService, renderer *templates.Renderer) *StoriesHandler {
	return &StoriesHandler{Handler: humastar.Handler{Renderer: renderer}, geo: geo}
}

func (h *StoriesHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/stories", h.List, huma.OperationTags("stories"))
	huma.Get(api, "/api/stories/theme-options", h.ThemeOptions, huma.OperationTags("stories"))
	huma.Get(api, "/api/stories/{id}", h.Get, huma.OperationTags("stories"))
	huma.Post(api, "/api/stories/search", h.Search, huma.OperationTags("stories"))
}

type ListStoriesInput struct {
	Offset    int    `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit     int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Page size"`
	Theme     string `query:"theme" doc:"Thematic tag to match" example:"displacement"`
	MediaType string `query:"mediaType" doc:"Primary media type to match" example:"audio"`
	DateRange string `query:"dateRange" doc:"Period label to match" example:"1960s"`
}

func (h *StoriesHandler) List(ctx context.Context, input *ListStoriesInput) (*struct {
	Body humastar.PageBody[service.StoryRecord]
}, error) {
	stories, err := h.geo.Stories()
	if err != nil {
		return nil, huma.Error500InternalServerError("load stories: " + err.Error())
	}
	filter := service.StoryFilter{Theme: input.Theme, MediaType: input.MediaType, DateRange: input.DateRange}
	matched := make([]service.StoryRecord, 0, len(stories))
	for _, st := range stories {
		if filter.Matches(st) {
			matched = append(matched, st)
		}
	}
	page := humastar.PageBody[service.StoryRecord]{
		Total:  len(matched),
		Offset: input.Offset,
		Limit:  input.Limit,
		Data:   pageOf(matched, input.Offset, input.Limit),
	}
	return &struct {
		Body humastar.PageBody[service.StoryRecord]
	}{Body: page}, nil
}

func pageOf(stories []service.StoryRecord, offset, limit int) []service.StoryRecord {
	if offset >= len(stories) {
		return []service.StoryRecord{}
	}
	end := offset + limit
	if end > len(stories) {
		end = len(stories)
	}
	return stories[offset:end]
}

func (h *StoriesHandler) Get(ctx context.Context, input *IDInput) (*struct{ Body service.StoryRecord }, error) {
	story, ok, err := h.geo.StoryByID(input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("load stories: " + err.Error())
	}
	if !ok {
		return nil, huma.Error404NotFound("story not found: " + input.ID)
	}
	return &struct{ Body service.StoryRecord }{Body: story}, nil
}

// Search filters the story list from the panel's filter signals and
// patches the matching cards into the panel.
func (h *StoriesHandler) Search(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	filter := service.StoryFilter{
		Theme:     signals.String("filtertheme"),
		MediaType: signals.String("filtermediatype"),
		DateRange: signals.String("filterdaterange"),
	}
	return h.Stream(func(sse humastar.SSE) {
		stories, err := h.geo.Stories()
		if err != nil {
			sse.Error("Failed to load stories: " + err.Error())
			return
		}
		items := make([]any, 0, len(stories))
		for _, st := range stories {
			if filter.Matches(st) {
				items = append(items, st)
			}
		}
		sse.Patch(h.RenderList("story-card", items,
			"No Stories Found", "No stories match the current filters."), "#story-list")
		sse.Signals(map[string]any{"storycount": len(items)})
	}), nil
}

// ThemeOptions fills the filter form's theme select with the distinct
// themes present in the story file.
func (h *StoriesHandler) ThemeOptions(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		stories, err := h.geo.Stories()
		if err != nil {
			sse.Error("Failed to load stories: " + err.Error())
			return
		}
		seen := map[string]bool{}
		var options []humastar.SelectOptionData
		for _, st := range stories {
			if st.Theme == "" || seen[st.Theme] {
				continue
			}
			seen[st.Theme] = true
			options = append(options, humastar.SelectOptionData{Value: st.Theme, Label: st.Theme})
		}
		sort.Slice(options, func(i, j int) bool { return options[i].Value < options[j].Value })
		sse.Patch(h.RenderSelect("-- All themes --", options), "#theme-select")
	}), nil
}
