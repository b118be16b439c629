package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/MU-CMAP/narrative-geographies/internal/service"
)

// Rows returned past this count are dropped; the console is for poking
// at the feature index, not exporting it.
const maxQueryRows = 500

// DBHandler serves the diagnostics console's feature-index endpoints.
type DBHandler struct {
	db *sql.DB
}

func NewDBHandler(db *sql.DB) *DBHandler {
	return &DBHandler{db: db}
}

func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/db/tables", h.ListTables, huma.OperationTags("diagnostics"))
	huma.Post(api, "/api/db/query", h.Query, huma.OperationTags("diagnostics"))
}

type TablesBody struct {
	Tables []string `json:"tables" doc:"Table names in the feature index"`
}

func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*struct{ Body TablesBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("feature index is not open")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("list tables", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}

	return &struct{ Body TablesBody }{Body: TablesBody{Tables: tables}}, nil
}

type DBQueryInput struct {
	Body service.DBQuery
}

type DBQueryBody struct {
	Columns   []string         `json:"columns" doc:"Column names"`
	Rows      []map[string]any `json:"rows" doc:"Result rows"`
	Count     int              `json:"count" doc:"Rows returned"`
	Truncated bool             `json:"truncated" doc:"Whether the row cap cut the result short"`
}

func (h *DBHandler) Query(ctx context.Context, input *DBQueryInput) (*struct{ Body DBQueryBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("feature index is not open")
	}

	rows, err := h.db.QueryContext(ctx, input.Body.SQL)
	if err != nil {
		return nil, huma.Error400BadRequest("query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("read columns", err)
	}

	results := []map[string]any{}
	truncated := false
	for rows.Next() {
		if len(results) >= maxQueryRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			continue
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	return &struct{ Body DBQueryBody }{Body: DBQueryBody{
		Columns:   columns,
		Rows:      results,
		Count:     len(results),
		Truncated: truncated,
	}}, nil
}
