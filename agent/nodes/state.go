package nodes

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/remitai/agentcore/agent/contract"
)

type GraphInput struct {
	ConversationID string
	UserID         int64
	Text           string
}

type GraphOutput struct {
	Reply    string
	Rejected bool
}

// GraphState flows through one orchestrator run. History is a transient
// formatted snapshot; the store stays the only owner of the turns.
type GraphState struct {
	ConversationID string
	UserID         int64
	Text           string
	Now            time.Time

	History        string
	Classification contractx.Classification
	Config         contractx.SpecialistConfig
	Task           string

	Reply    string
	Rejected bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation id is empty", contractx.ErrValidation)
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	return &GraphState{
		ConversationID: conversationID,
		UserID:         in.UserID,
		Text:           text,
		Now:            nowFn().UTC(),
	}, nil
}
