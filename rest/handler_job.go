package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shelterly/automation/job"
	"github.com/shelterly/automation/model"
)

const defaultJobListLimit = 50

func (s *Server) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	j, err := s.container.GetStore().GetJob(r.Context(), id)
	if err != nil {
		respondStorageError(w, "job", err)
		return
	}
	respondWithJSON(w, http.StatusOK, j)
}

func (s *Server) HandleCancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	j, err := s.container.GetLifecycle().Cancel(r.Context(), id)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, j)
	case errors.Is(err, model.ErrIllegalTransition), errors.Is(err, job.ErrJobInFlight):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		respondStorageError(w, "job", err)
	}
}

func (s *Server) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	organizationId, err := pathId(r, "organizationId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := defaultJobListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	jobs, err := s.container.GetStore().ListJobs(r.Context(), organizationId, limit)
	if err != nil {
		respondStorageError(w, "jobs", err)
		return
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	respondWithJSON(w, http.StatusOK, jobs)
}
