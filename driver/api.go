package driver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/inqwatch/inquiry"
)

// APIConfig controls the local control API.
type APIConfig struct {
	// TokenBcrypt is the bcrypt hash of the bearer token. Empty disables
	// authentication (bind to loopback in that case).
	TokenBcrypt string
}

// NewAPIHandler builds the control API router over a Driver.
//
//	GET  /health       liveness plus binding status
//	POST /api/extract  extract now, publish-if-changed, return the record
//	GET  /api/inquiry  last published record plus the rendered prompt
//	POST /api/fill     fill the reply input, gate applied for copilot drafts
func NewAPIHandler(d *Driver, cfg APIConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{
			"status": "ok",
			"driver": d.CurrentStatus(),
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(requireToken(cfg.TokenBcrypt))

		r.Post("/api/extract", func(w http.ResponseWriter, r *http.Request) {
			data, err := d.ExtractOnce(r.Context())
			if err != nil {
				writeError(w, apiStatus(err), err)
				return
			}
			if data == nil {
				writeJSON(w, 200, map[string]any{"inquiry": nil})
				return
			}
			writeJSON(w, 200, map[string]any{"inquiry": data})
		})

		r.Get("/api/inquiry", func(w http.ResponseWriter, _ *http.Request) {
			data := d.Current()
			if data == nil {
				writeJSON(w, 404, map[string]string{"error": "no inquiry extracted yet"})
				return
			}
			writeJSON(w, 200, map[string]any{
				"inquiry": data,
				"prompt":  inquiry.BuildSystemPrompt(data, ""),
			})
		})

		r.Post("/api/fill", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Content string `json:"content"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			if strings.TrimSpace(req.Content) == "" {
				writeJSON(w, 400, map[string]string{"error": "content is required"})
				return
			}
			res, err := d.FillDraft(r.Context(), req.Content)
			if err != nil {
				writeError(w, apiStatus(err), err)
				return
			}
			writeJSON(w, 200, res)
		})
	})

	return r
}

// requireToken enforces a bearer token checked against a bcrypt hash.
// An empty hash disables the check.
func requireToken(tokenBcrypt string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenBcrypt == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || bcrypt.CompareHashAndPassword([]byte(tokenBcrypt), []byte(token)) != nil {
				writeJSON(w, 401, map[string]string{"error": "invalid token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func apiStatus(err error) int {
	if errors.Is(err, ErrNoPlatform) {
		return 409
	}
	return 500
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
