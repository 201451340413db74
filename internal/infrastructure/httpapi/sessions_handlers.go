package httpapi

import (
	"net/http"
	"strconv"
	"strings"
)

func (d *Deps) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	s := d.Sessions.Active()
	if s == nil {
		writeError(w, http.StatusNotFound, "NO_ACTIVE_SESSION", "no viewer connected", nil)
		return
	}
	writeJSON(w, map[string]any{"policy": d.Sessions.Policy(), "session": s.Snapshot()})
}

func (d *Deps) handleListSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodDelete:
		if err := d.Svc.ClearAll(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "SESSIONS_CLEAR_FAILED", err.Error(), nil)
			return
		}
		d.Monitor.Broadcast(MonitorEvent{Type: "sessions_cleared", ID: "*"})
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet, http.MethodHead:
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	items, total, err := d.Svc.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SESSIONS_LIST_FAILED", err.Error(), nil)
		return
	}
	// the stored record of a running session is its start snapshot
	if live := d.Sessions.Active(); live != nil {
		for i := range items {
			if items[i].ID == live.ID() {
				items[i] = live.Snapshot()
			}
		}
	}
	writeJSON(w, map[string]any{"items": items, "total": total})
}

func (d *Deps) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
		return
	}
	if live := d.Sessions.Active(); live != nil && live.ID() == id {
		writeJSON(w, live.Snapshot())
		return
	}
	sess, ok, err := d.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SESSION_GET_FAILED", err.Error(), map[string]any{"id": id})
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found", map[string]any{"id": id})
		return
	}
	writeJSON(w, sess)
}
