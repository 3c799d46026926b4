package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/spyparty/internal/auth"
	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/models"
)

const tokenCookie = "auth_token"

// baseRequest is embedded by every request body.
type baseRequest struct {
	InitData string `json:"initData"`
}

func (b baseRequest) initData() string { return b.InitData }

type credentialed interface {
	initData() string
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch game.KindOf(err) {
	case game.KindUnauthorized:
		return http.StatusUnauthorized
	case game.KindForbidden:
		return http.StatusForbidden
	case game.KindNotFound:
		return http.StatusNotFound
	case game.KindInvalidConfiguration, game.KindInvalidState, game.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		s.Log.WithFields(logrus.Fields{"path": r.URL.Path, "error": err}).Error("request failed")
		detail = "internal server error"
	}
	writeJSON(w, status, errorBody{Detail: detail})
}

// credentials collects the Authorization header (or the auth cookie) and initData.
func credentials(r *http.Request, initData string) auth.Credentials {
	header := r.Header.Get("Authorization")
	if header == "" {
		if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
			header = "Bearer " + c.Value
		}
	}
	return auth.Credentials{Authorization: header, InitData: initData}
}

// endpoint decodes a JSON body into Req, authenticates the caller and writes
// fn's result as JSON.
func endpoint[Req credentialed](s *Server, fn func(u models.User, req Req) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, r, game.Validation("invalid request body"))
			return
		}
		u, err := s.Auth.Authenticate(credentials(r, req.initData()))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out, err := fn(u, req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) cardMeta(card string) (*string, *int) {
	var url *string
	var cost *int
	if s.Catalog == nil {
		return nil, nil
	}
	if v, ok := s.Catalog.ImageURL(card); ok {
		url = &v
	}
	if v, ok := s.Catalog.ElixirCost(card); ok {
		cost = &v
	}
	return url, cost
}
