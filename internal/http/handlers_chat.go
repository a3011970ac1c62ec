package http

import (
	"net/http"

	"bolsya/internal/advisor"
)

func (s *Server) handleChatAsk(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := s.svc.Chat.Ask(r.Context(), userID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chatReplyResponse{Question: reply.Question, Answer: reply.Answer})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	messages, err := s.svc.Chat.History(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newChatMessageResponses(messages))
}

func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	if err := s.svc.Chat.Clear(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChatContext shows the text the advisor would receive.
func (s *Server) handleChatContext(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	fc, err := s.svc.Chat.FinancialContext(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, chatContextResponse{Context: advisor.BuildContext(fc)})
}
