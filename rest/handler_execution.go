package rest

import (
	"net/http"
)

func (s *Server) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	exec, err := s.container.GetStore().GetExecution(r.Context(), id)
	if err != nil {
		respondStorageError(w, "execution", err)
		return
	}
	respondWithJSON(w, http.StatusOK, exec)
}

func (s *Server) HandleGetJobExecution(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	exec, err := s.container.GetStore().GetExecutionByJob(r.Context(), id)
	if err != nil {
		respondStorageError(w, "execution", err)
		return
	}
	respondWithJSON(w, http.StatusOK, exec)
}
