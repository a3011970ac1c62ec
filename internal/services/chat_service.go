package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bolsya/internal/advisor"
	"bolsya/internal/core"
	"bolsya/internal/storage"
)

const maxQuestionLength = 2000

// ChatReply is the advisor's answer to one question.
type ChatReply struct {
	Question string
	Answer   string
}

// ChatService answers questions about a user's finances and keeps the
// transcript.
type ChatService struct {
	storage      *storage.SQLiteRepository
	stats        *StatsService
	advisor      advisor.Advisor
	recentLimit  int
	historyLimit int
	now          func() time.Time
}

func NewChatService(storage *storage.SQLiteRepository, stats *StatsService, adv advisor.Advisor, recentLimit, historyLimit int) *ChatService {
	if adv == nil {
		adv = advisor.Unavailable{}
	}
	return &ChatService{
		storage:      storage,
		stats:        stats,
		advisor:      adv,
		recentLimit:  recentLimit,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// FinancialContext gathers the current month's stats and the latest
// transactions of the user.
func (s *ChatService) FinancialContext(ctx context.Context, userID int64) (*advisor.FinancialContext, error) {
	start, end := core.MonthRange(s.now().UTC())

	var fc advisor.FinancialContext
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.stats.Dashboard(gctx, userID, start, end)
		if err != nil {
			return err
		}
		fc.Stats = stats
		return nil
	})
	g.Go(func() error {
		recent, err := s.storage.RecentTransactions(gctx, userID, s.recentLimit)
		if err != nil {
			return err
		}
		fc.Recent = recent
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build financial context: %w", err)
	}
	return &fc, nil
}

// Ask renders the user's context, forwards the question to the advisor and
// records the exchange. Advisor failures are *advisor.Error values and
// leave the transcript untouched.
func (s *ChatService) Ask(ctx context.Context, userID int64, question string) (ChatReply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ChatReply{}, core.Invalid("message", core.ErrEmptyMessage)
	}
	if len([]rune(question)) > maxQuestionLength {
		return ChatReply{}, core.Invalid("message", fmt.Errorf("message too long (max %d characters)", maxQuestionLength))
	}

	fc, err := s.FinancialContext(ctx, userID)
	if err != nil {
		return ChatReply{}, err
	}

	answer, err := s.advisor.Advise(ctx, advisor.BuildContext(fc), question)
	if err != nil {
		return ChatReply{}, err
	}

	if err := s.storage.SaveChatExchange(ctx, userID, question, answer); err != nil {
		// The user still gets the answer.
		slog.ErrorContext(ctx, "Failed to save chat exchange", "user_id", userID, "error", err)
	}
	return ChatReply{Question: question, Answer: answer}, nil
}

// History returns the transcript oldest first, capped to the configured
// number of latest messages.
func (s *ChatService) History(ctx context.Context, userID int64) ([]core.ChatMessage, error) {
	return s.storage.ListChatMessages(ctx, userID, s.historyLimit)
}

func (s *ChatService) Clear(ctx context.Context, userID int64) error {
	return s.storage.ClearChat(ctx, userID)
}
