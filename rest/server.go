package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shelterly/automation/container"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/model"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port      int
	container *container.DIContainer
}

func NewServer(httpPort int, container *container.DIContainer) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:              fmt.Sprintf(":%d", httpPort),
			IdleTimeout:       2 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
		container: container,
		Port:      httpPort,
	}
	s.Handler = s.router()
	return s, nil
}

func (s *Server) router() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/flows", s.HandleImportFlow).Methods(http.MethodPost)
	router.HandleFunc("/flows/{id}", s.HandleGetFlow).Methods(http.MethodGet)
	router.HandleFunc("/flows/{id}/run", s.HandleRunFlow).Methods(http.MethodPost)

	router.HandleFunc("/mutations", s.HandleRecordMutation).Methods(http.MethodPost)

	router.HandleFunc("/jobs/{id}", s.HandleGetJob).Methods(http.MethodGet)
	router.HandleFunc("/jobs/{id}/cancel", s.HandleCancelJob).Methods(http.MethodPost)
	router.HandleFunc("/organizations/{organizationId}/jobs", s.HandleListJobs).Methods(http.MethodGet)

	router.HandleFunc("/executions/{id}", s.HandleGetExecution).Methods(http.MethodGet)
	router.HandleFunc("/jobs/{id}/execution", s.HandleGetJobExecution).Methods(http.MethodGet)

	router.Handle("/metrics", s.container.GetMetrics().Handler()).Methods(http.MethodGet)
	router.Use(loggingMiddleware)
	return router
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("http request", zap.String("method", r.Method), zap.String("uri", r.RequestURI))
		next.ServeHTTP(w, r)
	})
}

func pathId(r *http.Request, name string) (int64, error) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		return 0, fmt.Errorf("missing %s", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	respondWithBody(w, code, response)
}

// respondWithFlow writes block configs back exactly as they were imported.
func respondWithFlow(w http.ResponseWriter, code int, flow *model.Flow) {
	response, err := flow.EncodeJSON()
	if err != nil {
		logger.Error("error encoding flow", zap.Int64("flow", flow.Id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error encoding flow")
		return
	}
	respondWithBody(w, code, response)
}

func respondWithBody(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
