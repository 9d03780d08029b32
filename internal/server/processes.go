package server

import (
	"net/http"

	"naktender/pkg/types"
)

func (s *Service) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	var filter types.ProcessFilter
	if err := formError(decoder.Decode(&filter, r.URL.Query())); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.portal.ListProcesses(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, page)
}

func (s *Service) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	detail, err := s.portal.Process(r.Context(), r.PathValue("publicationNumber"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, detail)
}
