package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/remitai/agentcore/agent/contract"
	historyx "github.com/remitai/agentcore/agent/history"
	nodesx "github.com/remitai/agentcore/agent/nodes"
	specialistx "github.com/remitai/agentcore/agent/specialist"
)

const (
	// DefaultConversationID keys anonymous sessions that never sent one.
	DefaultConversationID = "default"
	// DefaultUserID is the demo sender with seeded payee relationships.
	DefaultUserID int64 = 99

	streamBufferSize = 8
)

// ChatContext is the caller-supplied routing context for one message.
// Zero values fall back to the defaults above.
type ChatContext struct {
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         int64  `json:"user_id,omitempty"`
}

// Orchestrator runs one conversation turn at a time per conversation:
// append user turn, classify, dispatch, append assistant turn. Turns in
// the same conversation serialize on a per-conversation lock; different
// conversations run concurrently.
type Orchestrator struct {
	store      historyx.Store
	models     contractx.Registry
	dispatcher *specialistx.Dispatcher
	runner     compose.Runnable[nodesx.GraphInput, nodesx.GraphOutput]
	now        func() time.Time

	locks sync.Map // conversation id -> *sync.Mutex
}

func New(
	ctx context.Context,
	store historyx.Store,
	models contractx.Registry,
	dispatcher *specialistx.Dispatcher,
) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: history store is nil", contractx.ErrValidation)
	}
	if models == nil {
		return nil, fmt.Errorf("%w: model registry is nil", contractx.ErrValidation)
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher is nil", contractx.ErrValidation)
	}

	o := &Orchestrator{
		store:      store,
		models:     models,
		dispatcher: dispatcher,
		now:        time.Now,
	}

	runner, err := o.compileGraph(ctx)
	if err != nil {
		return nil, err
	}
	o.runner = runner
	return o, nil
}

// Chat runs one blocking conversation turn and returns the full reply.
func (o *Orchestrator) Chat(ctx context.Context, message string, chatCtx ChatContext) (string, error) {
	in := o.input(message, chatCtx)
	if _, err := nodesx.ValidateRequest(in, o.now); err != nil {
		return "", err
	}

	unlock := o.lockConversation(in.ConversationID)
	defer unlock()

	out, err := o.runner.Invoke(ctx, in)
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// ChatStream runs one conversation turn and emits reply fragments as they
// become available. The concatenation of the emitted fragments equals the
// assistant turn persisted to history. Errors, including validation of the
// inbound message, surface through the returned reader.
func (o *Orchestrator) ChatStream(ctx context.Context, message string, chatCtx ChatContext) *schema.StreamReader[string] {
	reader, writer := schema.Pipe[string](streamBufferSize)

	go func() {
		defer writer.Close()
		if err := o.streamTurn(ctx, message, chatCtx, writer); err != nil {
			writer.Send("", err)
		}
	}()

	return reader
}

func (o *Orchestrator) streamTurn(
	ctx context.Context,
	message string,
	chatCtx ChatContext,
	writer *schema.StreamWriter[string],
) error {
	state, err := nodesx.ValidateRequest(o.input(message, chatCtx), o.now)
	if err != nil {
		return err
	}

	unlock := o.lockConversation(state.ConversationID)
	defer unlock()

	if state, err = nodesx.AppendUserTurn(ctx, state, o.store); err != nil {
		return err
	}
	if state, err = nodesx.ClassifyIntent(ctx, state, o.models.Classifier()); err != nil {
		return err
	}

	if state.Classification.Intent == contractx.IntentUnknown {
		if state, err = nodesx.RejectUnknown(ctx, state, o.store); err != nil {
			return err
		}
		writer.Send(state.Reply, nil)
		return nil
	}

	if state, err = nodesx.ResolveSpecialist(state, o.dispatcher); err != nil {
		return err
	}
	runner, err := nodesx.PickRunner(state.Classification.Intent, o.models)
	if err != nil {
		return err
	}

	full, err := o.drainSpecialist(ctx, state, runner, writer)
	if err != nil {
		writer.Send(state.Reply, nil)
		return err
	}
	if strings.TrimSpace(full) == "" {
		cause := fmt.Errorf("%w: specialist returned empty message", contractx.ErrSpecialist)
		err = nodesx.FailTurn(ctx, state, o.store, cause)
		writer.Send(state.Reply, nil)
		return err
	}

	return o.store.Append(ctx, state.ConversationID, historyx.RoleAssistant, full)
}

// drainSpecialist prefers the runner's native stream and falls back to the
// blocking call when the runner reports no streaming support. This is a
// capability check, not error-driven fallback.
func (o *Orchestrator) drainSpecialist(
	ctx context.Context,
	state *nodesx.GraphState,
	runner contractx.Runner,
	writer *schema.StreamWriter[string],
) (string, error) {
	if !runner.SupportsStreaming() {
		reply, err := runner.Run(ctx, state.Task)
		if err != nil {
			return "", nodesx.FailTurn(ctx, state, o.store, err)
		}
		writer.Send(reply, nil)
		return reply, nil
	}

	sr, err := runner.RunStream(ctx, state.Task)
	if err != nil {
		return "", nodesx.FailTurn(ctx, state, o.store, err)
	}
	defer sr.Close()

	var b strings.Builder
	for {
		chunk, recvErr := sr.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", nodesx.FailTurn(ctx, state, o.store, recvErr)
		}
		if chunk == "" {
			continue
		}
		b.WriteString(chunk)
		writer.Send(chunk, nil)
	}
	return b.String(), nil
}

func (o *Orchestrator) input(message string, chatCtx ChatContext) nodesx.GraphInput {
	conversationID := strings.TrimSpace(chatCtx.ConversationID)
	if conversationID == "" {
		conversationID = DefaultConversationID
	}
	userID := chatCtx.UserID
	if userID == 0 {
		userID = DefaultUserID
	}
	return nodesx.GraphInput{
		ConversationID: conversationID,
		UserID:         userID,
		Text:           message,
	}
}

func (o *Orchestrator) lockConversation(conversationID string) func() {
	v, loaded := o.locks.LoadOrStore(conversationID, &sync.Mutex{})
	if !loaded {
		log.Debug().Str("conversation_id", conversationID).Msg("new conversation lock")
	}
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
