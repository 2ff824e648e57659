package httpapi

import (
	"net/http"
	"os"

	"ask_gateway/internal/utils"
)

// handleHealth reports liveness plus backing store reachability.
func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if err := d.DB.Ping(r.Context()); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if d.Redis != nil {
		if err := d.Redis.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
		}
	}

	utils.RespondWithJSON(w, code, status)
}

// handleIndex serves the static frontend page when one is deployed next to
// the binary, a plain banner otherwise.
func (d *Dependencies) handleIndex(w http.ResponseWriter, r *http.Request) {
	if d.Cfg.StaticIndex != "" {
		if _, err := os.Stat(d.Cfg.StaticIndex); err == nil {
			http.ServeFile(w, r, d.Cfg.StaticIndex)
			return
		}
	}
	utils.RespondWithText(w, http.StatusOK, "ask gateway")
}
