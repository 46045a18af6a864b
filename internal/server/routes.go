package server

import (
	"net/http"

	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/middleware"
)

// methods dispatches on the request method. HEAD falls back to GET; any
// other unlisted method gets 405.
type methods map[string]http.Handler

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, ok := m[r.Method]
	if !ok && r.Method == http.MethodHead {
		h, ok = m[http.MethodGet]
	}
	if !ok {
		middleware.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	h.ServeHTTP(w, r)
}

func (s *Server) routes() {
	authn := middleware.Authenticate(s.auth)

	// read resolves the caller without rejecting anyone.
	read := func(h http.HandlerFunc) http.Handler {
		return authn(h)
	}
	// write is the mutation pipeline: rate limit, authentication, then CSRF.
	write := func(h http.HandlerFunc, superadmin bool) http.Handler {
		guard := middleware.RequireAuth
		if superadmin {
			guard = middleware.RequireSuperadmin
		}
		return middleware.Chain(h,
			authn,
			middleware.RateLimit(s.auth, middleware.CallerTag),
			guard,
			middleware.CSRF(s.auth),
		)
	}

	writeConfig := write(s.handleWriteDocument(docstore.ConfigDoc), false)
	s.router.Handle("/json/config.json", methods{
		http.MethodGet:   read(s.handleReadConfig),
		http.MethodPut:   writeConfig,
		http.MethodPost:  writeConfig,
		http.MethodPatch: writeConfig,
	})

	writeDB := write(s.handleWriteDocument(docstore.RecordsDoc), true)
	s.router.Handle("/json/db.json", methods{
		http.MethodGet:   middleware.Chain(http.HandlerFunc(s.handleReadRecords), authn, middleware.RequireSuperadmin),
		http.MethodPut:   writeDB,
		http.MethodPost:  writeDB,
		http.MethodPatch: writeDB,
	})
	s.router.Handle("/json/public.db.json", methods{http.MethodGet: http.HandlerFunc(s.handlePublicRecords)})

	s.router.Handle("/auth/login", methods{http.MethodPost: http.HandlerFunc(s.handleLogin)})
	s.router.Handle("/auth/session", methods{http.MethodGet: http.HandlerFunc(s.handleSession)})
	logout := http.HandlerFunc(s.handleLogout)
	s.router.Handle("/auth/logout", methods{http.MethodPost: logout, http.MethodGet: logout})
	s.router.Handle("/auth/forgot", methods{http.MethodPost: http.HandlerFunc(s.handleForgot)})
	s.router.Handle("/admin/superadmin", methods{http.MethodPost: http.HandlerFunc(s.handleSuperadmin)})

	s.router.Handle("/wallet/topup", methods{http.MethodPost: write(s.handleTopup, false)})
	s.router.Handle("/donate", methods{http.MethodPost: write(s.handleDonate, false)})
	s.router.Handle("/stripe/webhook", methods{http.MethodPost: http.HandlerFunc(s.handleWebhook)})

	s.router.Handle("/journal", methods{http.MethodPost: write(s.handleJournal, true)})
	s.router.Handle("/compact", methods{http.MethodPost: write(s.handleCompact, true)})
	s.router.Handle("/activity", methods{http.MethodGet: http.HandlerFunc(s.handleActivity)})

	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/ready", s.handleReady)
	s.router.HandleFunc("/metrics", s.handleMetrics)

	s.router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, http.StatusNotFound, "not_found")
	})
}
