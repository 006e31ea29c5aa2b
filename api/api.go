// Package api serves the LIMS over HTTP with JSON responses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/perspective-lims/core"
	"github.com/wansing/perspective-lims/workflow"
)

// sessionUID is the session key of the id of the logged-in user.
const sessionUID = "uid"

var (
	ErrLogin    = errors.New("wrong username or password")
	ErrLoggedIn = errors.New("login required")
)

// A ReadExtender adds fields to the read response of an object.
type ReadExtender interface {
	Extend(ctx context.Context, o *core.Object, includeFields []string, data map[string]any) error
}

type Server struct {
	Core           *core.CoreDB
	Dispatcher     *workflow.Dispatcher
	Extenders      []ReadExtender
	MetricsHandler http.Handler // nil disables /metrics
	Logger         *slog.Logger
}

type handler func(w http.ResponseWriter, req *http.Request, params httprouter.Params) error

// middleware sets up the request scope: the logged-in user, the language and the skip list of the dispatcher.
// The skip list is released when f returns.
func (s *Server) middleware(requireLoggedIn bool, f handler) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var ctx = req.Context()

		if uid := s.Core.SessionManager.GetInt(ctx, sessionUID); uid > 0 {
			u, err := s.Core.GetUser(uid)
			if err == nil {
				ctx = core.WithUser(ctx, u)
			} else {
				s.Logger.Warn("session user not found", "uid", uid, "err", err)
				s.Core.SessionManager.Remove(ctx, sessionUID)
			}
		}

		ctx = core.WithLanguage(ctx, core.MatchLanguage(req.Header.Get("Accept-Language")))

		ctx, release := workflow.WithSkipList(ctx)
		defer release()

		if requireLoggedIn && core.UserFrom(ctx) == nil {
			s.writeError(w, req, ErrLoggedIn)
			return
		}

		if err := f(w, req.WithContext(ctx), params); err != nil {
			s.writeError(w, req, err)
		}
	}
}

// Handler returns the router, wrapped by the session manager.
func (s *Server) Handler() http.Handler {

	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	var router = httprouter.New()

	// public
	router.POST("/login", s.middleware(false, s.login))
	router.GET("/read/*path", s.middleware(false, s.read))
	router.GET("/controlpanel", s.middleware(false, s.controlPanel))

	// private
	router.GET("/logout", s.middleware(true, s.logout))
	router.POST("/transition/:action/*path", s.middleware(true, s.transition))
	router.POST("/create/:type/*path", s.middleware(true, s.create))

	if s.MetricsHandler != nil {
		router.Handler(http.MethodGet, "/metrics", s.MetricsHandler)
	}

	return s.Core.SessionManager.LoadAndSave(router)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, req *http.Request, err error) {

	var status int
	switch {
	case errors.Is(err, ErrLogin), errors.Is(err, ErrLoggedIn):
		status = http.StatusUnauthorized
	case core.IsCode(err, core.CodeInvalidParameter):
		status = http.StatusBadRequest
	case core.IsCode(err, core.CodeUnauthorized):
		status = http.StatusForbidden
	case core.IsCode(err, core.CodeNotFound):
		status = http.StatusNotFound
	case core.IsCode(err, core.CodeWorkflow):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		s.Logger.Error("handling request", "method", req.Method, "path", req.URL.Path, "err", err)
		writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
		return
	}

	writeJSON(w, status, errorResponse{
		Error: core.Message(err),
		Code:  core.Code(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
