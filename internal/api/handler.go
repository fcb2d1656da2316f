// Package api exposes the intake form and chat surface over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/talentscout/scout/internal/interview"
	"github.com/talentscout/scout/internal/ollama"
	"github.com/talentscout/scout/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps carries the handler dependencies.
type Deps struct {
	Sessions *interview.Manager
	Records  *storage.Store
}

// NewHandler returns the HTTP API for the conversational intake flow.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", handleCreateSession(deps))
		r.Get("/sessions/{id}", handleGetSession(deps))
		r.Post("/sessions/{id}/profile", handleSubmitProfile(deps))
		r.Post("/sessions/{id}/messages", handleMessage(deps))
		r.Get("/records", handleListRecords(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// candidatePreview is the display view of the profile: email and phone are
// masked, raw answers never leave the server through this surface.
type candidatePreview struct {
	FullName          string   `json:"full_name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	YearsOfExperience string   `json:"years_of_experience"`
	DesiredRoles      []string `json:"desired_roles"`
	Location          string   `json:"location"`
	TechStack         []string `json:"tech_stack"`
}

func previewOf(c interview.Candidate) candidatePreview {
	return candidatePreview{
		FullName:          c.FullName,
		Email:             storage.MaskEmail(c.Email),
		Phone:             storage.MaskPhone(c.Phone),
		YearsOfExperience: c.YearsOfExperience,
		DesiredRoles:      c.DesiredRoles,
		Location:          c.Location,
		TechStack:         c.TechStack,
	}
}

type sessionView struct {
	ID         string                   `json:"id"`
	Stage      interview.Stage          `json:"stage"`
	Transcript []ollama.Message         `json:"transcript"`
	Candidate  candidatePreview         `json:"candidate"`
	Open       *interview.QuestionGroup `json:"open,omitempty"`
}

func viewOf(s *interview.Session) sessionView {
	return sessionView{
		ID:         s.ID,
		Stage:      s.Stage,
		Transcript: s.VisibleTranscript(),
		Candidate:  previewOf(s.Candidate),
		Open:       s.OpenQuestions(),
	}
}

func handleCreateSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := deps.Sessions.Create()
		slog.Info("session created", "session_id", s.ID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(viewOf(s))
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			status, errType := classify(err)
			httpError(w, status, errType, "%v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(viewOf(s))
	}
}

type submitResponse struct {
	sessionView
	Fallback bool `json:"fallback"`
}

func handleSubmitProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		s, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			status, errType := classify(err)
			httpError(w, status, errType, "%v", err)
			return
		}

		var form interview.ProfileForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		res, err := deps.Sessions.Engine().SubmitProfile(r.Context(), s, form)
		if err != nil {
			status, errType := classify(err)
			slog.Warn("profile submission failed", "session_id", s.ID, "error", err)
			httpError(w, status, errType, "%v", err)
			return
		}

		slog.Info("questions generated",
			"session_id", s.ID,
			"groups", len(s.AskedQuestions),
			"fallback", res.Fallback,
		)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(submitResponse{
			sessionView: viewOf(s),
			Fallback:    res.Fallback,
		})
	}
}

// handleListRecords returns stored candidate records, newest first, with
// PII masked. Raw answers stay in the log file.
func handleListRecords(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid limit %q", v)
				return
			}
			limit = n
		}

		records, err := deps.Records.List()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing records: %v", err)
			return
		}

		previews := make([]storage.Record, 0, len(records))
		for i := len(records) - 1; i >= 0 && len(previews) < limit; i-- {
			previews = append(previews, storage.Preview(records[i]))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(previews)
	}
}

type messageRequest struct {
	Text string `json:"text"`
}

// streamEvent is one NDJSON line of the chat-message response stream.
// "delta" events carry incremental commentary fragments as they arrive
// from the model; "message" events carry each complete assistant message;
// the final "state" event reports the resulting stage.
type streamEvent struct {
	Type  string                   `json:"type"`
	Role  string                   `json:"role,omitempty"`
	Text  string                   `json:"text,omitempty"`
	Stage interview.Stage          `json:"stage,omitempty"`
	Open  *interview.QuestionGroup `json:"open,omitempty"`
	Saved bool                     `json:"saved,omitempty"`
}

func handleMessage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		s, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			status, errType := classify(err)
			httpError(w, status, errType, "%v", err)
			return
		}

		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		enc := json.NewEncoder(w)
		wroteAny := false
		writeEvent := func(ev streamEvent) {
			if !wroteAny {
				w.Header().Set("Content-Type", "application/x-ndjson")
				w.Header().Set("Cache-Control", "no-cache")
				wroteAny = true
			}
			if err := enc.Encode(ev); err != nil {
				slog.Debug("writing stream event", "error", err)
				return
			}
			flusher.Flush()
		}

		reply, err := deps.Sessions.Engine().HandleMessage(r.Context(), s, req.Text, func(delta string) {
			writeEvent(streamEvent{Type: "delta", Text: delta})
		})
		if err != nil {
			status, errType := classify(err)
			if !wroteAny {
				httpError(w, status, errType, "%v", err)
				return
			}
			// The NDJSON stream has started; report in-band.
			slog.Warn("message handling failed mid-stream", "session_id", s.ID, "error", err)
			writeEvent(streamEvent{Type: "error", Text: err.Error()})
			return
		}

		for _, msg := range reply.Assistant {
			writeEvent(streamEvent{Type: "message", Role: "assistant", Text: msg})
		}
		writeEvent(streamEvent{
			Type:  "state",
			Stage: reply.Stage,
			Open:  reply.Open,
			Saved: reply.Saved,
		})
	}
}
