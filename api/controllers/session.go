package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// AuthSession is the session surface the controllers drive.
type AuthSession interface {
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, input auth.RegisterInput) (auth.User, error)
	Logout(ctx context.Context)
	UpdateProfile(ctx context.Context, input auth.ProfileInput) (auth.User, error)
	User() (auth.User, bool)
	State() auth.State
}

type sessionView struct {
	State         auth.State `json:"state"`
	Authenticated bool       `json:"authenticated"`
	User          *auth.User `json:"user"`
}

func sessionViewOf(session AuthSession) sessionView {
	view := sessionView{State: session.State()}
	if user, ok := session.User(); ok {
		view.User = &user
		view.Authenticated = true
	}
	return view
}

func SessionFetch(session AuthSession) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, sessionViewOf(session))
	}
}

func SessionLogin(session AuthSession, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.Credentials
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		username := validators.SanitizeString(req.Username, 150)
		if err := session.Login(r.Context(), username, req.Password); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionViewOf(session))
	}
}

// SessionRegister creates an account without signing it in.
func SessionRegister(session AuthSession, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := session.Register(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

func SessionLogout(session AuthSession) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session.Logout(r.Context())
		responses.WriteSuccess(w, sessionViewOf(session))
	}
}

func SessionUpdateProfile(session AuthSession, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ProfileInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := session.UpdateProfile(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
