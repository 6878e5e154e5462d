package api

import (
	"net/http"
	"time"
)

var startTime = time.Now()

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int    `json:"uptime_seconds"`
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       Version,
		UptimeSeconds: int(time.Since(startTime).Seconds()),
	})
}
