package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/fractal/pkg/buildinfo"
	"github.com/matzehuels/fractal/pkg/errors"
	"github.com/matzehuels/fractal/pkg/geometry"
	"github.com/matzehuels/fractal/pkg/planner"
	"github.com/matzehuels/fractal/pkg/render"
	"github.com/matzehuels/fractal/pkg/store"
	"github.com/matzehuels/fractal/pkg/task"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleCircle(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.serveRender(w, r, format)
}

func (s *Server) handleGeometry(w http.ResponseWriter, r *http.Request) {
	s.serveRender(w, r, render.FormatJSON)
}

// serveRender draws the circle with live counts. Query parameters theme
// and highlight (ring/index) adjust the drawing.
func (s *Server) serveRender(w http.ResponseWriter, r *http.Request, format render.Format) {
	ctx := r.Context()
	opts := s.render
	opts.Formats = []string{string(format)}
	opts.Logger = nil

	q := r.URL.Query()
	if theme := q.Get("theme"); theme != "" {
		opts.Theme = theme
	}
	if hl := q.Get("highlight"); hl != "" {
		a, err := parseAddress(hl)
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Highlight = &a
	}

	counts, err := s.planner.Counts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.runner.Render(ctx, opts, counts)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	if res.CacheHit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	_, _ = w.Write(res.Artifacts[string(format)])
}

type classifyResponse struct {
	Hit       bool               `json:"hit"`
	Point     geometry.Point     `json:"point"`
	Selection *planner.Selection `json:"selection,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	p, err := s.pointFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sel, ok, err := s.planner.Select(r.Context(), p.X, p.Y)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := classifyResponse{Hit: ok, Point: p}
	if ok {
		resp.Selection = &sel
	}
	writeJSON(w, http.StatusOK, resp)
}

// pointFromQuery reads x and y, scaling them from an on-screen box when
// screen_w and screen_h are given.
func (s *Server) pointFromQuery(r *http.Request) (geometry.Point, error) {
	q := r.URL.Query()
	x, err := parseFloat(q, "x")
	if err != nil {
		return geometry.Point{}, err
	}
	y, err := parseFloat(q, "y")
	if err != nil {
		return geometry.Point{}, err
	}
	if q.Get("screen_w") == "" && q.Get("screen_h") == "" {
		return geometry.Point{X: x, Y: y}, nil
	}
	sw, err := parseFloat(q, "screen_w")
	if err != nil {
		return geometry.Point{}, err
	}
	sh, err := parseFloat(q, "screen_h")
	if err != nil {
		return geometry.Point{}, err
	}
	c := s.planner.Geometry().Center()
	vp := geometry.Viewport{ViewWidth: 2 * c.X, ViewHeight: 2 * c.Y}
	return vp.ToView(x, y, sw, sh)
}

type dropRequest struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Note string  `json:"note"`
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, ok, err := s.planner.Drop(r.Context(), req.X, req.Y, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]bool{"dropped": false})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"dropped": true, "task": t})
}

func (s *Server) handleSectorTasks(w http.ResponseWriter, r *http.Request) {
	a, err := addressParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sel, err := s.planner.SelectAddress(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// taskDraft is the body accepted when creating a task.
type taskDraft struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Priority    task.Priority `json:"priority"`
	Tags        []string      `json:"tags"`
	Important   bool          `json:"important"`
}

func (s *Server) handleSectorCreate(w http.ResponseWriter, r *http.Request) {
	a, err := addressParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var d taskDraft
	if err := decodeBody(w, r, &d); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.planner.CreateInSector(r.Context(), a, task.Task{
		Title:       d.Title,
		Description: d.Description,
		Start:       d.Start,
		End:         d.End,
		Priority:    d.Priority,
		Tags:        d.Tags,
		Important:   d.Important,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleSectorClear(w http.ResponseWriter, r *http.Request) {
	a, err := addressParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := s.planner.ClearAddress(r.Context(), a)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.Filter
	if c := q.Get("cycle"); c != "" {
		cycle, err := task.ParseCycle(c)
		if err != nil {
			writeError(w, err)
			return
		}
		f.Cycle = cycle
	}
	if st := q.Get("status"); st != "" {
		status, err := task.ParseStatus(st)
		if err != nil {
			writeError(w, err)
			return
		}
		f.Status = status
	}
	f.IncludeArchived = q.Get("archived") == "true"

	tasks, err := s.tasks.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handlePatchTask(w http.ResponseWriter, r *http.Request) {
	var p task.Patch
	if err := decodeBody(w, r, &p); err != nil {
		writeError(w, err)
		return
	}
	if p.Empty() {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "patch has no fields"))
		return
	}
	t, err := s.tasks.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Request helpers
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func addressParam(r *http.Request) (geometry.Address, error) {
	ring, err := geometry.ParseRing(chi.URLParam(r, "ring"))
	if err != nil {
		return geometry.Address{}, err
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return geometry.Address{}, errors.New(errors.ErrCodeInvalidArgument, "sector index %q is not a number", chi.URLParam(r, "index"))
	}
	return geometry.Address{Ring: ring, Index: index}, nil
}

// parseAddress parses "ring/index".
func parseAddress(s string) (geometry.Address, error) {
	ringName, idx, ok := strings.Cut(s, "/")
	if !ok {
		return geometry.Address{}, errors.New(errors.ErrCodeInvalidArgument, "sector %q: want ring/index", s)
	}
	ring, err := geometry.ParseRing(ringName)
	if err != nil {
		return geometry.Address{}, err
	}
	index, err := strconv.Atoi(idx)
	if err != nil {
		return geometry.Address{}, errors.New(errors.ErrCodeInvalidArgument, "sector %q: index is not a number", s)
	}
	return geometry.Address{Ring: ring, Index: index}, nil
}

func parseFloat(q map[string][]string, key string) (float64, error) {
	vals := q[key]
	if len(vals) == 0 || vals[0] == "" {
		return 0, errors.New(errors.ErrCodeInvalidArgument, "missing query parameter %q", key)
	}
	v, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidArgument, "query parameter %q: %q is not a number", key, vals[0])
	}
	return v, nil
}
