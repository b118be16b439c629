package explore

import (
	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/MU-CMAP/narrative-geographies/internal/config"
	"github.com/MU-CMAP/narrative-geographies/internal/humastar"
)

// ViewData feeds the explore fragments: the session snapshot plus the
// static site and menu configuration the panels list.
type ViewData struct {
	atlas.View
	Site config.Site
	Menu config.Menu
}

// patchView replaces the state-driven fragments with a fresh render of
// the view. The fragment ids are stable anchors in the explore page.
func (h *Handler) patchView(sse humastar.SSE, view atlas.View) {
	data := ViewData{View: view, Site: h.cfg.Site, Menu: h.cfg.Menu}
	for tmpl, selector := range map[string]string{
		"mode-toggle": "#mode-toggle",
		"menu-panel":  "#menu-panel",
		"story-panel": "#story-panel",
	} {
		html, err := h.Renderer.Render(tmpl, data)
		if err != nil {
			h.log.Error("fragment render failed", "template", tmpl, "error", err)
			continue
		}
		sse.Replace(html, selector)
	}
}
