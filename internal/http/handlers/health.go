package handlers

import "net/http"

// Health reports process and datastore liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	if err := a.DB.Ping(r.Context()); err != nil {
		a.json(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "db": "down"})
		return
	}
	a.json(w, http.StatusOK, map[string]any{"status": "ok"})
}
