package server

import (
	"net/http"
	"time"

	"github.com/jonathan/resume-optimizer/internal/auth"
	"github.com/jonathan/resume-optimizer/internal/server/middleware"
)

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	User      *auth.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// handleRegister creates an account and signs it in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.auth.IssueSession(r.Context(), user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "user registered", "user_id", user.ID)
	s.setSessionCookie(w, session)
	s.jsonResponse(w, r, http.StatusCreated, SessionResponse{User: user, Token: session.Token, ExpiresAt: session.ExpiresAt})
}

// handleLogin verifies credentials and issues a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	user, session, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setSessionCookie(w, session)
	s.jsonResponse(w, r, http.StatusOK, SessionResponse{User: user, Token: session.Token, ExpiresAt: session.ExpiresAt})
}

// handleLogout invalidates the presented session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r, s.cfg.Session.CookieName)
	if err := s.auth.InvalidateSession(r.Context(), token); err != nil {
		s.fail(w, r, err)
		return
	}

	s.clearSessionCookie(w)
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

// handleMe returns the signed-in user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"user": currentUser(r)})
}

// handleDeleteAccount removes the user, every record they own and their
// uploaded originals. Blob removal is best effort once the rows are gone.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	ctx := r.Context()

	paths, err := s.profiles.StoredPaths(ctx, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.auth.DeleteUser(ctx, user.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	for _, path := range paths {
		if err := s.blobs.Delete(ctx, path); err != nil {
			s.logger.Warn(ctx, "failed to delete stored upload", "user_id", user.ID, "location", path, "error", err)
		}
	}

	s.logger.Info(ctx, "account deleted", "user_id", user.ID, "uploads", len(paths))
	s.clearSessionCookie(w)
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
