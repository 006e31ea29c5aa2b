package api

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/perspective-lims/core"
	"github.com/wansing/perspective-lims/util"
	"github.com/wansing/perspective-lims/workflow"
)

// objectData returns the fields which every read response contains.
func (s *Server) objectData(req *http.Request, o *core.Object) map[string]any {
	return map[string]any{
		"uid":          o.UID(),
		"path":         o.Path(),
		"portal_type":  o.PortalType(),
		"title":        o.Title(),
		"review_state": s.Dispatcher.CurrentState(req.Context(), o, workflow.Review),
		"created":      time.Unix(o.TsCreated(), 0).UTC().Format(time.RFC3339),
	}
}

// read returns an object. The query parameter include_fields restricts the fields which read extenders add.
func (s *Server) read(w http.ResponseWriter, req *http.Request, params httprouter.Params) error {

	var ctx = req.Context()

	o, err := s.Core.Open(params.ByName("path"))
	if err != nil {
		return err
	}

	if err := s.Core.RequirePermission(ctx, core.View, o); err != nil {
		return err
	}

	var data = s.objectData(req, o)
	var includeFields = util.SplitFields(req.URL.Query().Get("include_fields"))
	for _, e := range s.Extenders {
		if err := e.Extend(ctx, o, includeFields, data); err != nil {
			return err
		}
	}

	return writeJSON(w, http.StatusOK, data)
}

type transitionResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	ReviewState string `json:"review_state"`
}

func (s *Server) transition(w http.ResponseWriter, req *http.Request, params httprouter.Params) error {

	var ctx = req.Context()

	o, err := s.Core.Open(params.ByName("path"))
	if err != nil {
		return err
	}

	var status = http.StatusOK
	ok, message := s.Dispatcher.PerformTransition(ctx, o, params.ByName("action"))
	if !ok {
		status = http.StatusBadRequest
	}

	return writeJSON(w, status, transitionResponse{
		Success:     ok,
		Message:     message,
		ReviewState: s.Dispatcher.CurrentState(ctx, o, workflow.Review),
	})
}

// create adds a child to the object at path. The form values are slug, title and prep_workflow.
func (s *Server) create(w http.ResponseWriter, req *http.Request, params httprouter.Params) error {

	parent, err := s.Core.Open(params.ByName("path"))
	if err != nil {
		return err
	}

	var slug = req.PostFormValue("slug")
	var title = util.Trunc(req.PostFormValue("title"), 255)
	if title == "" {
		title = slug
	}

	o, err := s.Core.CreateObject(req.Context(), parent, slug, params.ByName("type"), title, req.PostFormValue("prep_workflow"))
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, s.objectData(req, o))
}

func (s *Server) controlPanel(w http.ResponseWriter, req *http.Request, params httprouter.Params) error {
	actions, err := s.Core.VisibleActions(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, actions)
}
