package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tordrt/schemadoc"
	"github.com/tordrt/schemadoc/internal/attr"
	"github.com/tordrt/schemadoc/internal/ddl"
	"github.com/tordrt/schemadoc/internal/parser"
	"github.com/tordrt/schemadoc/internal/store"
)

// dialectAll selects every dialect.
const dialectAll = "all"

type schemaRequest struct {
	Schema string `json:"schema"`
}

type compareRequest struct {
	Before  string `json:"before"`
	After   string `json:"after"`
	Dialect string `json:"dialect,omitempty"`
	Label   string `json:"label,omitempty"`
}

type dialectInfo struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Aliases []string `json:"aliases,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// badRequest marks an error as caused by the request.
type badRequest struct {
	err error
}

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func (s *Server) handleDialects(w http.ResponseWriter, _ *http.Request) {
	var out []dialectInfo
	for _, d := range ddl.List() {
		out = append(out, dialectInfo{ID: int(d.ID), Name: d.Name, Title: d.Title, Aliases: d.Aliases})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req schemaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	m, err := parser.New(s.logger).Parse(req.Schema)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	delta, err := schemadoc.Diff(req.Before, req.After)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delta)
}

// handleDDL renders the migration from before to after. A single dialect
// answers with the script as text; "all" answers with a JSON list.
func (s *Server) handleDDL(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	delta, err := schemadoc.Diff(req.Before, req.After)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts := ddl.Options{Logger: s.logger, Label: req.Label}

	if req.Dialect == dialectAll {
		scripts, err := schemadoc.GenerateAll(r.Context(), delta, opts)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, scripts)
		return
	}

	id, err := ddl.ParseDialect(req.Dialect)
	if err != nil {
		s.writeError(w, err)
		return
	}
	script, err := ddl.New(opts).Generate(delta, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeText(w, http.StatusOK, script)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.service.Store().Projects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if projects == nil {
		projects = []string{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.service.Store().List(r.Context(), chi.URLParam(r, "project"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Listings leave out the schema text.
	out := make([]store.Version, 0, len(versions))
	for _, v := range versions {
		v.Content = ""
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCommitVersion(w http.ResponseWriter, r *http.Request) {
	var req schemaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.service.CommitVersion(r.Context(), chi.URLParam(r, "project"), req.Schema)
	if err != nil {
		s.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Unchanged {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || n < 1 {
		s.writeError(w, badRequest{fmt.Errorf("invalid version number %q", chi.URLParam(r, "number"))})
		return
	}

	v, err := s.service.Store().Version(r.Context(), chi.URLParam(r, "project"), n)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.Store().Draft(r.Context(), chi.URLParam(r, "project"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req schemaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.service.Store().SaveDraft(r.Context(), chi.URLParam(r, "project"), req.Schema); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProjectDiff(w http.ResponseWriter, r *http.Request) {
	from, to, err := versionRange(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	cmp, err := s.service.Compare(r.Context(), chi.URLParam(r, "project"), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleProjectDDL(w http.ResponseWriter, r *http.Request) {
	from, to, err := versionRange(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	selector := r.URL.Query().Get("dialect")
	if selector == "" {
		selector = "postgresql"
	}
	id, err := ddl.ParseDialect(selector)
	if err != nil {
		s.writeError(w, err)
		return
	}

	script, err := s.service.VersionDDL(r.Context(), chi.URLParam(r, "project"), from, to, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeText(w, http.StatusOK, script)
}

// versionRange reads the optional from and to query parameters.
func versionRange(r *http.Request) (int, int, error) {
	parse := func(key string) (int, error) {
		v := r.URL.Query().Get(key)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, badRequest{fmt.Errorf("invalid %s version %q", key, v)}
		}
		return n, nil
	}

	from, err := parse("from")
	if err != nil {
		return 0, 0, err
	}
	to, err := parse("to")
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest{fmt.Errorf("invalid request body: %w", err)}
	}
	return nil
}

// statusFor maps pipeline and store errors to HTTP status codes.
func statusFor(err error) int {
	var (
		br          badRequest
		unsupported *ddl.UnsupportedDialectError
		unknown     *ddl.UnknownKeywordError
		schemaErr   *parser.SchemaParseError
		attrErr     *attr.ParseError
	)

	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &br),
		errors.As(err, &unsupported),
		errors.As(err, &unknown),
		errors.As(err, &schemaErr),
		errors.As(err, &attrErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
