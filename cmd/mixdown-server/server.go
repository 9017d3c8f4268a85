package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mixdown-audio/mixdown"
	"github.com/mixdown-audio/mixdown/version"
)

type server struct {
	renderer *mixdown.Renderer
	logger   *log.Logger
	maxBody  int64
}

func newRouter(s *server) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/render", s.handleRender).Methods("POST", "OPTIONS")
	router.HandleFunc("/render/{trackId}", s.handleRender).Methods("POST", "OPTIONS")
	router.HandleFunc("/", handleRoot).Methods("GET")
	router.Use(serverHeader)
	return router
}

func serverHeader(next http.Handler) http.Handler {
	name := version.UserAgent("mixdown-server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", name)
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	// Set CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Expose-Headers", "X-Render-Duration, X-Render-Triggers, X-Render-Skipped")

	// Handle pre-flight OPTIONS request
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("Project is larger than %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, fmt.Sprintf("Error reading request: %v", err), http.StatusBadRequest)
		return
	}
	project, err := mixdown.DecodeProject(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid project: %v", err), http.StatusBadRequest)
		return
	}
	options := mixdown.RenderOptions{OnlyTrackID: mux.Vars(r)["trackId"]}
	if rate := r.URL.Query().Get("rate"); rate != "" {
		options.SampleRate, err = strconv.Atoi(rate)
		if err != nil || options.SampleRate < 8000 || options.SampleRate > 192000 {
			http.Error(w, fmt.Sprintf("Invalid sample rate %q", rate), http.StatusBadRequest)
			return
		}
	}

	result, err := s.renderer.Render(r.Context(), &project, options, func(p mixdown.Progress) {
		s.logger.Printf("%s %s %d%%: %s", r.RemoteAddr, p.Phase, p.Progress, p.Message)
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, mixdown.ErrInvalidProject) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, fmt.Sprintf("Error rendering project: %v", err), status)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Wav)))
	w.Header().Set("X-Render-Duration", strconv.FormatFloat(result.DurationSeconds, 'f', 3, 64))
	w.Header().Set("X-Render-Triggers", strconv.Itoa(result.Triggers))
	w.Header().Set("X-Render-Skipped", strconv.Itoa(result.Skipped))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Wav)
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Mixdown server. POST a project to /render, or to /render/{trackId} for a single track."))
}
