package adapthttp

import (
	"net/http"

	"nutrition/internal/app"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	profiles *app.ProfileService
	auth     *app.AuthService
	oidc     OIDCConfig
}

// New creates a Server wired to the given application services. SSO stays
// disabled until WithOIDC is called.
func New(profiles *app.ProfileService, auth *app.AuthService) *Server {
	return &Server{profiles: profiles, auth: auth}
}

// WithOIDC enables the single sign-on endpoints.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidc = cfg
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("/config", s.handleConfig)

	api.HandleFunc("/auth/register", s.handleRegister)
	api.HandleFunc("/auth/login", s.handleLogin)
	api.HandleFunc("/auth/refresh", s.handleRefresh)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)
	api.Handle("/auth/me", s.authMiddleware(http.HandlerFunc(s.handleMe)))

	api.Handle("/profile", s.authMiddleware(http.HandlerFunc(s.handleProfile)))
	api.Handle("/profile/targets", s.authMiddleware(http.HandlerFunc(s.handleTargets)))
	api.Handle("/profile/targets/history", s.authMiddleware(http.HandlerFunc(s.handleTargetHistory)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return s.loggingMiddleware(withNoCache(root))
}
