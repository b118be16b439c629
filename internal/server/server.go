// Package server assembles the HTTP server: the Huma REST API, the
// Datastar explore stream, the rendered pages and the static assets.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"reflect"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/MU-CMAP/narrative-geographies/internal/api"
	"github.com/MU-CMAP/narrative-geographies/internal/api/explore"
	"github.com/MU-CMAP/narrative-geographies/internal/cms"
	"github.com/MU-CMAP/narrative-geographies/internal/config"
	"github.com/MU-CMAP/narrative-geographies/internal/db"
	"github.com/MU-CMAP/narrative-geographies/internal/humastar"
	"github.com/MU-CMAP/narrative-geographies/internal/logging"
	"github.com/MU-CMAP/narrative-geographies/internal/metrics"
	"github.com/MU-CMAP/narrative-geographies/internal/service"
	"github.com/MU-CMAP/narrative-geographies/internal/templates"
	"github.com/MU-CMAP/narrative-geographies/web"
)

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	DataDir    string
	WebDir     string // optional on-disk web/ directory; empty uses the embedded assets
	ConfigPath string // optional site config YAML; empty uses the built-in defaults
	LogLevel   string
	LogFormat  string
	Metrics    bool
}

// Server is the narrative-geographies HTTP server.
type Server struct {
	config   Config
	site     config.Config
	mux      *http.ServeMux
	humaAPI  huma.API
	log      *slog.Logger
	db       *sql.DB
	bus      *service.EventBus
	catalog  *service.OverlayService
	geo      *service.GeoDataService
	metrics  *metrics.Provider
	renderer *templates.Renderer
	sessions *explore.Sessions
}

// New builds the server. A missing DuckDB or content store is tolerated:
// the affected endpoints degrade, the rest of the site works.
func New(cfg Config) (*Server, error) {
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	site, err := loadSite(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	renderer, err := loadTemplates(cfg.WebDir)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	geo := service.NewGeoDataService(cfg.DataDir, log)
	catalog := service.NewOverlayService(site.Overlays, geo, log)
	bus := service.NewEventBus()

	cmsCfg, err := cms.FromEnv()
	if err != nil {
		log.Warn("content store disabled", "error", err)
	}
	content := cms.New(cmsCfg, log)

	var conn *sql.DB
	if cfg.DataDir != "" {
		conn, err = db.Get(db.Config{DataDir: cfg.DataDir, DBName: "narrativegeo"})
		if err != nil {
			log.Warn("feature index disabled", "error", err)
			conn = nil
		}
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("narrative-geographies API", api.Version)
	humaConfig.Info.Description = "Community mapping and storytelling API: story catalog, overlay registry, content queries and the explore session stream."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.DocsPath = "/api/docs"
	humaConfig.OpenAPIPath = "/api/openapi"
	humaConfig.Transformers = append(humaConfig.Transformers, humastar.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:   cfg,
		site:     site,
		mux:      mux,
		humaAPI:  humaAPI,
		log:      log,
		db:       conn,
		bus:      bus,
		catalog:  catalog,
		geo:      geo,
		renderer: renderer,
		sessions: explore.NewSessions(),
	}
	if cfg.Metrics {
		s.metrics = metrics.NewProvider()
	}

	s.registerAPI(content)
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI exposes the generated spec for the CLI spec subcommand.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Start runs the background pieces: the overlay catalog scan, the
// feature index build and the metrics listener. It returns once the
// catalog is ready; the index build continues in the background.
func (s *Server) Start(ctx context.Context) {
	s.catalog.Refresh()

	if s.metrics != nil {
		listener := metrics.NewBusListener(s.bus, s.metrics, s.log)
		go listener.Start(ctx)
	}

	if s.db != nil {
		go func() {
			if err := service.BuildFeatureIndex(ctx, s.db, s.geo, s.site.Overlays, s.log); err != nil {
				s.log.Warn("feature index build failed", "error", err)
			}
		}()
	}
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

func (s *Server) registerAPI(content *cms.Client) {
	services := &api.Services{
		Geo:      s.geo,
		Overlays: s.catalog,
		Content:  content,
		DB:       s.db,
		Bus:      s.bus,
	}

	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(services))
	api.NewInfoHandler(s.config.DataDir).RegisterRoutes(s.humaAPI)
	api.NewOverlaysHandler(s.catalog).RegisterRoutes(s.humaAPI)
	api.NewStoriesHandler(s.geo, s.renderer).RegisterRoutes(s.humaAPI)
	api.NewContentHandler(content).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)
	api.NewEventsHandler(s.bus, s.renderer).RegisterRoutes(s.humaAPI)

	fetcher := service.NewOverlayFetcher(s.geo, nil)
	exploreHandler := explore.NewHandler(s.sessions, s.site, fetcher, s.bus, s.renderer, s.log)
	exploreHandler.RegisterRoutes(s.humaAPI)

	// Schema extensions and link relations go in last, once every route
	// and schema is registered.
	humastar.InjectExtensions(s.humaAPI, schemaConfigs())
	humastar.RegisterFormTemplates(s.humaAPI, s.renderer)
	humastar.AutoLinks(s.humaAPI)
}

// schemaConfigs lists the schemas that carry x-datastar extensions. The
// story filter drives the rendered filter form and the page signal
// defaults.
func schemaConfigs() []humastar.DatastarSchemaConfig {
	return []humastar.DatastarSchemaConfig{
		{
			Type:     reflect.TypeOf(service.StoryFilter{}),
			Prefix:   "filter",
			FormTmpl: "filter-form",
			BasePath: "/api/stories",
		},
	}
}

func (s *Server) routes() {
	s.mux.Handle("/geo/{file}", GeoHandler(s.geo))
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(s.staticFS())))

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("GET /explore", s.page("explore"))
	s.mux.HandleFunc("GET /themes", s.page("themes"))
	s.mux.HandleFunc("GET /communities", s.page("communities"))
	s.mux.HandleFunc("GET /contact", s.page("contact"))
	s.mux.HandleFunc("GET /diagnostics", s.page("diagnostics"))
	s.mux.HandleFunc("GET /{$}", s.page("index"))
}

func loadSite(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func loadTemplates(webDir string) (*templates.Renderer, error) {
	if webDir != "" {
		return templates.New(filepath.Join(webDir, "templates"))
	}
	return templates.NewFS(web.FS)
}

func (s *Server) staticFS() http.FileSystem {
	if s.config.WebDir != "" {
		return http.Dir(filepath.Join(s.config.WebDir, "static"))
	}
	sub, err := fs.Sub(web.FS, "static")
	if err != nil {
		// The embed always contains static/; reaching this means the
		// binary itself is broken.
		panic(err)
	}
	return http.FS(sub)
}

// pageView is the data every rendered page receives.
type pageView struct {
	Site    config.Site
	Menu    config.Menu
	Signals string
}

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.renderer.Execute(w, name, s.pageData()); err != nil {
			s.log.Error("render page", "page", name, "error", err)
			http.Error(w, "template error", http.StatusInternalServerError)
		}
	}
}

func (s *Server) pageData() pageView {
	pd := humastar.BuildPageData(s.humaAPI, schemaConfigs()[0], map[string]any{
		"sessionid":      "",
		"mode":           "stories",
		"menuopen":       false,
		"storypanelopen": false,
		"aboutvisible":   false,
	})
	return pageView{
		Site:    s.site.Site,
		Menu:    s.site.Menu,
		Signals: pd.Signals,
	}
}

// GeoHandler serves GeoJSON overlay files from the data directory with
// the CORS headers the map engine needs to fetch them cross-origin.
func GeoHandler(geo *service.GeoDataService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		path, err := geo.FilePath(r.PathValue("file"))
		if err != nil {
			if os.IsNotExist(err) {
				http.NotFound(w, r)
			} else {
				http.Error(w, err.Error(), http.StatusBadRequest)
			}
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		http.ServeFile(w, r, path)
	})
}
