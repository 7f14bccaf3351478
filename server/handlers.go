package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	contractx "github.com/remitai/agentcore/agent/contract"
	jobsx "github.com/remitai/agentcore/agent/jobs"
	orchestratorx "github.com/remitai/agentcore/agent/orchestrator"
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         int64  `json:"user_id,omitempty"`
}

// handleChat streams reply fragments as server-sent events. Validation
// failures are rejected before the stream starts; failures after the first
// fragment surface as an error event.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decode body: %v", contractx.ErrValidation, err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New("response writer does not support streaming"))
		return
	}

	reader := s.orchestrator.ChatStream(r.Context(), req.Message, orchestratorx.ChatContext{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
	})
	defer reader.Close()

	headerSent := false
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !headerSent {
				writeError(w, err)
				return
			}
			writeEvent(w, flusher, "error", err.Error())
			return
		}
		if chunk == "" {
			continue
		}
		if !headerSent {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			headerSent = true
		}
		writeEvent(w, flusher, "", chunk)
	}

	if !headerSent {
		writeError(w, fmt.Errorf("%w: empty reply stream", contractx.ErrSpecialist))
		return
	}
	writeEvent(w, flusher, "done", "")
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event, data string) {
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			log.Debug().Err(err).Msg("client went away mid-stream")
			return
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		log.Debug().Err(err).Msg("client went away mid-stream")
		return
	}
	flusher.Flush()
}

type startJobRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         int64  `json:"user_id,omitempty"`
	PaymentProof   string `json:"payment_proof,omitempty"`
}

type startJobResponse struct {
	JobID  string       `json:"job_id"`
	Status jobsx.Status `json:"status"`
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decode body: %v", contractx.ErrValidation, err))
		return
	}

	job, err := s.jobs.Submit(r.Context(), req.Message, jobsx.Context{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		PaymentProof:   req.PaymentProof,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, startJobResponse{JobID: job.ID, Status: job.Status})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleAvailability(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":           "available",
		"agent_identifier": s.cfg.AgentIdentifier,
		"message":          "RemitAI agent is ready to accept jobs.",
	})
}

// handleInputSchema describes the fields start_job accepts, so purchasers
// can build the request without reading the source.
func (s *Server) handleInputSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"input_data": []map[string]string{
			{
				"id":   "message",
				"type": "string",
				"name": "Message",
				"data": "The remittance question or instruction to process.",
			},
			{
				"id":   "conversation_id",
				"type": "string",
				"name": "Conversation ID",
				"data": "Optional key grouping messages into one conversation.",
			},
		},
	})
}
