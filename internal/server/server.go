// Package server exposes checks over HTTP for editors and CI.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"reqprops/internal/extractor"
	"reqprops/internal/knowledge"
	"reqprops/internal/report"
)

// maxSourceBytes bounds a check request body.
const maxSourceBytes = 4 << 20

//go:embed check_request.schema.json
var checkRequestSchemaJSON string

var checkRequestSchema = jsonschema.MustCompileString("check_request.schema.json", checkRequestSchemaJSON)

// Checker analyses an in-memory source file.
type Checker interface {
	CheckSource(ctx context.Context, lang, filename string, src []byte, allFunctions bool) ([]report.Diagnostic, error)
}

// App holds server dependencies.
type App struct {
	checker Checker
	kb      *knowledge.Base
	logger  *slog.Logger
}

func NewApp(checker Checker, kb *knowledge.Base, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &App{checker: checker, kb: kb, logger: logger}
}

// Handler returns the router.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/check", a.handleCheck)
		r.Get("/services", a.handleServices)
		r.Get("/services/{service}", a.handleService)
	})
	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (a *App) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

type checkRequest struct {
	Language     string `json:"language"`
	Filename     string `json:"filename"`
	Source       string `json:"source"`
	AllFunctions bool   `json:"all_functions"`
}

type checkResponse struct {
	Diagnostics []report.Diagnostic `json:"diagnostics"`
}

func (a *App) handleCheck(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSourceBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}
	req, err := decodeCheckRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Language == "" {
		lang, ok := extractor.LanguageForPath(req.Filename)
		if !ok {
			writeError(w, http.StatusBadRequest, "cannot infer language from filename")
			return
		}
		req.Language = lang
	}

	ds, err := a.checker.CheckSource(r.Context(), req.Language, req.Filename, []byte(req.Source), req.AllFunctions)
	if err != nil {
		if errors.Is(err, extractor.ErrUnsupportedLanguage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error("check failed", "filename", req.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ds == nil {
		ds = []report.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, checkResponse{Diagnostics: ds})
}

// decodeCheckRequest validates body against the request schema before
// decoding it.
func decodeCheckRequest(body []byte) (checkRequest, error) {
	var req checkRequest
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return req, err
	}
	if err := checkRequestSchema.Validate(doc); err != nil {
		return req, err
	}
	err := json.Unmarshal(body, &req)
	return req, err
}

func (a *App) handleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"services": a.kb.Services()})
}

func (a *App) handleService(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	if !a.kb.HasService(service) {
		writeError(w, http.StatusNotFound, "unknown service "+service)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": service,
		"methods": a.kb.MethodsFor(service),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
