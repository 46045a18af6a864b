package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/raakeshmj/coreenginedb/internal/audit"
	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/middleware"
)

// HeaderAllowEmpty overrides the guard against emptying db.json.
const HeaderAllowEmpty = "X-Allow-Empty-Write"

// serveDocument writes doc with its ETag. HEAD gets the headers only.
func serveDocument(w http.ResponseWriter, r *http.Request, doc *docstore.Document) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("ETag", doc.ETag)
	audit.FromContext(r.Context()).SetSize(len(doc.Body))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(doc.Body)
	}
}

// writeOK answers a successful mutation with the new ETag.
func writeOK(w http.ResponseWriter, r *http.Request, doc *docstore.Document, reason string) {
	if doc != nil {
		w.Header().Set("ETag", doc.ETag)
	}
	audit.FromContext(r.Context()).SetReason(reason)
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleReadConfig serves config.json. Only superadmins see the whole
// object; everyone else gets the public projection.
func (s *Server) handleReadConfig(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	doc, err := s.docs.ReadProjected(r.Context(), docstore.ConfigDoc, id.IsSuperadmin())
	if err != nil {
		s.fail(w, r, err, "read_error")
		return
	}
	serveDocument(w, r, doc)
}

func (s *Server) handleReadRecords(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Read(r.Context(), docstore.RecordsDoc)
	if err != nil {
		s.fail(w, r, err, "read_error")
		return
	}
	serveDocument(w, r, doc)
}

func (s *Server) handlePublicRecords(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.ReadPublic(r.Context())
	if err != nil {
		s.fail(w, r, err, "read_error")
		return
	}
	audit.FromContext(r.Context()).SetReason("public_snapshot")
	serveDocument(w, r, doc)
}

// handleWriteDocument replaces kind under the caller's If-Match.
func (s *Server) handleWriteDocument(kind docstore.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := middleware.IdentityFromContext(r.Context())
		ifMatch := r.Header.Get("If-Match")
		if strings.TrimSpace(ifMatch) == "" {
			s.fail(w, r, docstore.ErrMissingIfMatch, "write_error")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.fail(w, r, err, "write_error")
			return
		}
		opts := docstore.WriteOptions{
			AllowEmpty: strings.EqualFold(r.Header.Get(HeaderAllowEmpty), "true"),
			Actor:      id.User,
			Cause:      "write",
		}
		doc, err := s.docs.Write(r.Context(), kind, ifMatch, body, opts)
		if err != nil {
			audit.FromContext(r.Context()).SetSize(len(body))
			s.fail(w, r, err, "write_error")
			return
		}
		audit.FromContext(r.Context()).SetSize(len(doc.Body))
		writeOK(w, r, doc, "write_ok")
	}
}
