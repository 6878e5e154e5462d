package api

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/revittco/galaxystats/internal/metrics"
)

type statsHandler struct {
	counters *metrics.Counters
	cache    CacheInspector
	debug    bool
	timeout  time.Duration
}

// statsResponse is the /stats body. Timeout is in milliseconds.
type statsResponse struct {
	APICalls  int64 `json:"api_calls"`
	CacheSize int   `json:"cache_size"`
	DataSize  int64 `json:"data_size"`
	Errors    int64 `json:"errors"`
	Debug     bool  `json:"debug"`
	Timeout   int64 `json:"timeout"`
}

func (h *statsHandler) snapshot() statsResponse {
	var snap metrics.Snapshot
	if h.counters != nil {
		snap = h.counters.Snapshot()
	}
	resp := statsResponse{
		APICalls: snap.RequestsAttempted,
		DataSize: snap.CumulativeBytes,
		Errors:   snap.ErrorCount,
		Debug:    h.debug,
		Timeout:  h.timeout.Milliseconds(),
	}
	if h.cache != nil {
		resp.CacheSize = h.cache.Len()
	}
	return resp
}

func (h *statsHandler) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot())
}

var pageTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Star Wars API Demo</title>
<style>
body { font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
h1 { color: #FFE81F; background-color: #000; padding: 10px; }
button { background-color: #FFE81F; border: none; padding: 10px 20px; cursor: pointer; }
.footer { margin-top: 50px; font-size: 12px; color: #666; }
pre { background: #f4f4f4; padding: 10px; border-radius: 5px; }
</style>
</head>
<body>
<h1>Star Wars API Demo</h1>
<p>This page demonstrates fetching data from the Star Wars API.</p>
<p>Check your console for the API results.</p>
<button onclick="fetchData()">Fetch Star Wars Data</button>
<div id="results"></div>
<script>
function fetchData() {
  const results = document.getElementById('results');
  results.textContent = 'Loading data...';
  fetch('/api')
    .then(res => res.text())
    .then(() => { results.textContent = 'Data fetched! Check server console.'; })
    .catch(err => { results.textContent = 'Error: ' + err.message; });
}
</script>
<div class="footer">
<p>API calls: {{.APICalls}} | Cache entries: {{.CacheSize}} | Errors: {{.Errors}}</p>
<pre>Debug mode: {{if .Debug}}ON{{else}}OFF{{end}} | Timeout: {{.Timeout}}ms</pre>
</div>
</body>
</html>
`))

func (h *statsHandler) page(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, h.snapshot()); err != nil {
		slog.Error("failed to render page", "error", err)
		writeText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
