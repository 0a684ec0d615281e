package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/bh-network-dashboard/internal/catalog"
	"github.com/couchcryptid/bh-network-dashboard/internal/dashboard"
	"github.com/couchcryptid/bh-network-dashboard/internal/domain"
	"github.com/couchcryptid/bh-network-dashboard/internal/facility"
	"github.com/couchcryptid/bh-network-dashboard/internal/session"
)

// Response headers carrying the messages shown alongside a raw map document.
const (
	HeaderTitle   = "X-Dashboard-Title"
	HeaderNotice  = "X-Dashboard-Notice"
	HeaderWarning = "X-Dashboard-Warning"
)

type loginRequest struct {
	Password string `json:"password"`
}

type errorResponse struct {
	Error     string   `json:"error"`
	Available []string `json:"available,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	password, err := readPassword(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sess, err := s.sessions.Login(password)
	switch {
	case errors.Is(err, session.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, session.ErrInvalidPassword):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	case err != nil:
		s.writeError(w, err)
		return
	}

	session.SetCookie(w, sess, s.secureCookies)
	writeJSON(w, http.StatusOK, map[string]any{"expires_at": sess.ExpiresAt})
}

func readPassword(r *http.Request) (string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", errors.New("invalid login request")
		}
		return req.Password, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", errors.New("invalid login request")
	}
	return r.PostFormValue("password"), nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(session.CookieName); err == nil {
		s.sessions.Logout(c.Value)
	}
	session.ClearCookie(w, s.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.Options())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, ok := s.renderMap(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleMapDocument returns the combined document as HTML for embedding in
// an iframe. Title, notices, and warnings travel as response headers.
func (s *Server) handleMapDocument(w http.ResponseWriter, r *http.Request) {
	view, ok := s.renderMap(w, r)
	if !ok {
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set(HeaderTitle, view.Title)
	for _, n := range view.Notices {
		h.Add(HeaderNotice, n)
	}
	for _, warning := range view.Warnings {
		h.Add(HeaderWarning, warning)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(view.Document))
}

func (s *Server) renderMap(w http.ResponseWriter, r *http.Request) (dashboard.MapView, bool) {
	q := r.URL.Query()
	sel, err := parseSelection(q)
	if err != nil {
		s.writeError(w, err)
		return dashboard.MapView{}, false
	}

	show := false
	if raw := q.Get("facilities"); raw != "" {
		show, err = strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: facilities %q", domain.ErrInvalidSelection, raw))
			return dashboard.MapView{}, false
		}
	}

	view, err := s.dashboard.Map(r.Context(), dashboard.MapRequest{Selection: sel, ShowFacilities: show})
	if err != nil {
		s.writeError(w, err)
		return dashboard.MapView{}, false
	}
	return view, true
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := parseSelection(q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	req := dashboard.TableRequest{Selection: sel, States: stateFilter(q)}
	if req.Min, err = parseBound(q, "min"); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Max, err = parseBound(q, "max"); err != nil {
		s.writeError(w, err)
		return
	}

	view, err := s.dashboard.Table(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	sum, err := s.dashboard.Facilities(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func parseSelection(q url.Values) (domain.Selection, error) {
	return domain.ParseSelection(q.Get("level"), q.Get("taxonomy"), q.Get("metric"))
}

// stateFilter accepts both repeated and comma-separated state parameters.
func stateFilter(q url.Values) []string {
	var states []string
	for _, v := range q["state"] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				states = append(states, s)
			}
		}
	}
	return states
}

func parseBound(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q", domain.ErrInvalidSelection, key, raw)
	}
	return &v, nil
}

// writeError maps service errors to user-facing statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var notFound *catalog.AssetNotFoundError
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFound.Error(), Available: notFound.Available})
	case errors.Is(err, domain.ErrInvalidSelection):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, facility.ErrDirectoryNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
