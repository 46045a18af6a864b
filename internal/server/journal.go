package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/audit"
	"github.com/raakeshmj/coreenginedb/internal/docstore"
	"github.com/raakeshmj/coreenginedb/internal/middleware"
	"github.com/raakeshmj/coreenginedb/internal/model"
)

// dayParam returns the "day" query parameter, defaulting to today (UTC).
func dayParam(r *http.Request) string {
	if day := r.URL.Query().Get("day"); day != "" {
		return day
	}
	return model.Day(time.Now())
}

// handleJournal appends the body to the day's journal. The caller must
// hold the current db.json ETag, so appends follow the same optimistic
// protocol as direct writes.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	ifMatch := r.Header.Get("If-Match")
	if ifMatch == "" {
		s.fail(w, r, docstore.ErrMissingIfMatch, "journal_error")
		return
	}
	current, err := s.docs.Read(r.Context(), docstore.RecordsDoc)
	if err != nil {
		s.fail(w, r, err, "journal_error")
		return
	}
	if !current.Matches(ifMatch) {
		s.fail(w, r, docstore.ErrPreconditionFailed, "journal_error")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.fail(w, r, err, "journal_error")
		return
	}
	audit.FromContext(r.Context()).SetSize(len(body))
	key, err := s.journal.Append(r.Context(), dayParam(r), body)
	if err != nil {
		s.fail(w, r, err, "journal_error")
		return
	}
	audit.FromContext(r.Context()).SetReason("journal_append")
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "key": key})
}

// handleCompact folds the day's latest journal entry into db.json.
func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	opts := docstore.WriteOptions{Actor: id.User, Cause: "compact"}
	doc, err := s.journal.Compact(r.Context(), dayParam(r), r.Header.Get("If-Match"), opts)
	if err != nil {
		s.fail(w, r, err, "compact_error")
		return
	}
	audit.FromContext(r.Context()).SetSize(len(doc.Body))
	writeOK(w, r, doc, "compact_applied")
}

// handleActivity lists a day's audit entries, newest first, without users.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	day := dayParam(r)
	if !model.ValidDay(day) {
		middleware.WriteError(w, r, http.StatusBadRequest, "invalid_day")
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = audit.DefaultLimit
	}
	entries, err := s.activity.List(r.Context(), day, limit)
	if err != nil {
		s.fail(w, r, err, "activity_error")
		return
	}
	audit.FromContext(r.Context()).SetSize(len(entries))
	middleware.WriteJSON(w, http.StatusOK, entries)
}
