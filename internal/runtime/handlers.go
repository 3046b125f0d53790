package runtime

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tjfontaine/dagview/internal/core/domain"
	"github.com/tjfontaine/dagview/internal/server"
)

const streamPath = "/api/stream"

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Name    string
	Width   int
	Height  int
	Overlay bool
}

// routes registers every endpoint on srv. The event stream is long-lived
// and stays outside the request timeout.
func (v *Viewer) routes(srv *server.Server) {
	r := srv.Router

	r.Get("/", v.handlePage)
	r.Get(streamPath, v.handleStream)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(server.TimeoutMiddleware(v.cfg.Server.RequestTimeout))
		r.Get("/healthz", v.handleHealth)
		r.Get("/api/snapshot", v.handleSnapshot)
		r.Post("/api/events", v.handleAppend)
	})
}

func (v *Viewer) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Name:    v.cfg.Viewer.Name,
		Width:   v.cfg.Viewer.Width,
		Height:  v.cfg.Viewer.Height,
		Overlay: v.cfg.Viewer.Overlay,
	})
	if err != nil {
		server.AddError(r.Context(), err)
		http.Error(w, "render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (v *Viewer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (v *Viewer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := v.Snapshot(r.Context())
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "read events")
		return
	}
	server.AddLogField(r.Context(), "nodes", fmt.Sprint(len(snap.Nodes)))
	writeJSON(w, http.StatusOK, snap)
}

// appendRequest is the body of POST /api/events.
type appendRequest struct {
	ID       int64            `json:"id"`
	ParentID domain.ParentRef `json:"parent_id"`
	ItemID   string           `json:"item_id"`
	Type     domain.EventType `json:"type"`
	Value    json.RawMessage  `json:"value"`
}

func (v *Viewer) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusBadRequest, "invalid event: "+err.Error())
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "invalid event: type is required")
		return
	}

	value, err := decodeValue(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event value: "+err.Error())
		return
	}

	ev := &domain.NewEvent{
		ID:     req.ID,
		Parent: req.ParentID,
		ItemID: req.ItemID,
		Type:   req.Type,
		Value:  value,
	}
	id, err := v.Append(r.Context(), ev)
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "append event")
		return
	}

	v.logger.Debug("event appended",
		slog.Int64("id", id),
		slog.String("type", string(ev.Type)),
		slog.Bool("root", !ev.Parent.Valid))
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// decodeValue maps a JSON scalar onto the value column: strings, integers,
// floats, booleans and null. Objects and arrays are stored as their JSON
// text.
func decodeValue(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	switch v := v.(type) {
	case nil, string, bool:
		return v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return string(raw), nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
