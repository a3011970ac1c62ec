package http

import (
	"net/http"
)

const maxRecentLimit = 100

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	start, end, err := ParseOptionalRange(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	transactions, err := s.svc.Transactions.List(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newTransactionResponses(transactions))
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	limit, err := ParseLimit(r.URL.Query(), s.recentLimit, maxRecentLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	transactions, err := s.svc.Transactions.Recent(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newTransactionResponses(transactions))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input(true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Transactions.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.svc.Transactions.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input(false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Transactions.Update(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
