package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/perspective-lims/core"
)

type userResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (s *Server) login(w http.ResponseWriter, req *http.Request, params httprouter.Params) error {

	var email = req.PostFormValue("email")

	u, err := s.Core.LoginUser(email, req.PostFormValue("password"))
	if err != nil {
		s.Logger.Info("login failed", "user", email, "err", err)
		return ErrLogin
	}

	var ctx = req.Context()
	if err := s.Core.SessionManager.RenewToken(ctx); err != nil {
		return err
	}
	s.Core.SessionManager.Put(ctx, sessionUID, u.ID())

	return writeJSON(w, http.StatusOK, userResponse{ID: u.ID(), Name: u.Name()})
}

func (s *Server) logout(w http.ResponseWriter, req *http.Request, params httprouter.Params) error {
	var u = core.UserFrom(req.Context())
	if err := s.Core.SessionManager.Destroy(req.Context()); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, userResponse{ID: u.ID(), Name: u.Name()})
}
