package http

import (
	"net/http"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	typ, err := ParseTypeFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	categories, err := s.svc.Categories.List(r.Context(), userID, typ)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newCategoryResponses(categories))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input(true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := s.svc.Categories.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newCategoryResponse(category))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := s.svc.Categories.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newCategoryResponse(category))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input(false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := s.svc.Categories.Update(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newCategoryResponse(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Categories.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
