// Package interview drives the candidate conversation: greeting, profile
// collection, question generation, sequential question-answering, and the
// terminal save.
package interview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/talentscout/scout/internal/extract"
	"github.com/talentscout/scout/internal/ollama"
	"github.com/talentscout/scout/internal/storage"
)

const (
	// Fixed low temperature to bias question generation toward structured,
	// deterministic output.
	questionGenTemperature = 0.2
	// Temperature for the short steering redirect on degenerate input.
	steeringTemperature = 0.3
	// Interview-length cap per technology.
	maxQuestionsPerTech = 3
)

// endKeywords force immediate conversation termination from any
// non-terminal stage, matched case-insensitively against the whole input.
var endKeywords = map[string]struct{}{
	"quit": {},
	"exit": {},
	"bye":  {},
	"stop": {},
	"end":  {},
}

var (
	// ErrSessionDone is returned for any input after the terminal stage;
	// a done session is frozen and never re-entered.
	ErrSessionDone = errors.New("session is done")

	// ErrProfileLocked is returned when a profile submission arrives after
	// questions have been generated; asked questions are immutable.
	ErrProfileLocked = errors.New("profile already submitted")
)

// ValidationError reports a recoverable profile-submission failure. The
// session stays in collecting_info and the candidate may resubmit.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Gateway is the outbound model backend. Implemented by *ollama.Client.
type Gateway interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, temperature float64) (string, error)
	ChatStream(ctx context.Context, model string, messages []ollama.Message, temperature float64, onDelta func(string)) (string, error)
}

// RecordStore persists finalized candidate records. Implemented by
// *storage.Store.
type RecordStore interface {
	Append(rec storage.Record) error
}

// Engine applies conversation transitions to sessions. It holds no
// per-session state and is safe to share across sessions.
type Engine struct {
	gateway Gateway
	store   RecordStore
	model   string
	// chatTemperature is used for conversational commentary; question
	// generation and steering use their fixed temperatures.
	chatTemperature float64

	// isDegenerate decides whether an input is too thin to be a real
	// answer and should trigger a steering redirect instead. Pluggable so
	// the policy can be swapped without touching the state machine.
	isDegenerate func(string) bool
}

// NewEngine creates an Engine using the minimum-length degenerate policy.
func NewEngine(gateway Gateway, store RecordStore, model string, chatTemperature float64) *Engine {
	return &Engine{
		gateway:         gateway,
		store:           store,
		model:           model,
		chatTemperature: chatTemperature,
		isDegenerate:    MinLengthPolicy(2),
	}
}

// SetDegeneratePolicy replaces the degenerate-input predicate.
func (e *Engine) SetDegeneratePolicy(fn func(string) bool) {
	if fn != nil {
		e.isDegenerate = fn
	}
}

// MinLengthPolicy treats trimmed input shorter than n as degenerate. This
// is a coarse off-topic guard, not an intent classifier.
func MinLengthPolicy(n int) func(string) bool {
	return func(input string) bool {
		return len(strings.TrimSpace(input)) < n
	}
}

// NewSession creates a session, applies the one-time greeting transition,
// and leaves it in collecting_info.
func (e *Engine) NewSession(id string) *Session {
	s := &Session{
		ID:    id,
		Stage: StageGreeting,
		Transcript: []ollama.Message{
			{Role: "system", Content: systemPrompt},
		},
		Candidate: Candidate{
			Answers: map[string]map[string]string{},
		},
	}
	s.appendAssistant(greetingMessage)
	s.Stage = StageCollectingInfo
	return s
}

// SubmitResult describes the outcome of a successful profile submission.
type SubmitResult struct {
	// Fallback is true when structured generation yielded nothing usable
	// and the fixed general question set was installed instead.
	Fallback bool
	Open     *QuestionGroup
}

// SubmitProfile applies a structured form submission. Comma-separated
// fields are split and trimmed; if any required field is missing the
// session self-loops in collecting_info with a *ValidationError. On a
// complete profile it generates screening questions through the gateway
// and transitions to asking_questions. Transport failures propagate with
// the session left as it was before the call.
func (e *Engine) SubmitProfile(ctx context.Context, s *Session, form ProfileForm) (SubmitResult, error) {
	switch s.Stage {
	case StageDone:
		return SubmitResult{}, ErrSessionDone
	case StageCollectingInfo:
	default:
		return SubmitResult{}, ErrProfileLocked
	}

	s.Candidate.FullName = strings.TrimSpace(form.FullName)
	s.Candidate.Email = strings.TrimSpace(form.Email)
	s.Candidate.Phone = strings.TrimSpace(form.Phone)
	s.Candidate.YearsOfExperience = strings.TrimSpace(form.YearsOfExperience)
	s.Candidate.DesiredRoles = SplitList(form.DesiredRoles)
	s.Candidate.Location = strings.TrimSpace(form.Location)
	s.Candidate.TechStack = SplitList(form.TechStack)

	if !s.Candidate.Complete() {
		return SubmitResult{}, &ValidationError{Reason: "please fill all required fields before proceeding"}
	}

	// Defensive fallbacks; unreachable in practice since both lists are
	// required by the completeness check.
	techList := strings.Join(s.Candidate.TechStack, ", ")
	if techList == "" {
		techList = "general software engineering"
	}
	roles := strings.Join(s.Candidate.DesiredRoles, ", ")
	if roles == "" {
		roles = "Software Engineer"
	}
	yoe := s.Candidate.YearsOfExperience
	if yoe == "" {
		yoe = "unknown"
	}

	raw, err := e.gateway.Chat(ctx, e.model, []ollama.Message{
		{Role: "system", Content: jsonOnlySystemPrompt},
		{Role: "user", Content: questionGeneratorPrompt(techList, yoe, roles)},
	}, questionGenTemperature)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("generating questions: %w", err)
	}

	asked := parseQuestions(raw)
	result := SubmitResult{}
	if len(asked) == 0 {
		asked = fallbackQuestions()
		result.Fallback = true
		s.appendAssistant(fallbackNotice)
	}

	s.AskedQuestions = asked
	s.Stage = StageAskingQuestions
	result.Open = s.OpenQuestions()
	return result, nil
}

// parseQuestions extracts the "questions" mapping from raw model output,
// preserving the key order of the generated JSON. Values that are not
// non-empty lists of strings are dropped; lists are truncated to the
// per-technology cap. Returns nil when nothing usable is found.
func parseQuestions(text string) []TechQuestions {
	obj, ok := extract.Object(text)
	if !ok {
		return nil
	}

	var outer struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(obj, &outer); err != nil || len(outer.Questions) == 0 {
		return nil
	}

	// Decode the inner object token by token: encoding/json maps don't
	// preserve key order, and question groups must be asked in the order
	// the model produced them.
	dec := json.NewDecoder(bytes.NewReader(outer.Questions))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil
	}

	var out []TechQuestions
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil
		}

		var rawVal json.RawMessage
		if err := dec.Decode(&rawVal); err != nil {
			return nil
		}
		var list []string
		if err := json.Unmarshal(rawVal, &list); err != nil || len(list) == 0 {
			continue
		}
		if len(list) > maxQuestionsPerTech {
			list = list[:maxQuestionsPerTech]
		}
		out = append(out, TechQuestions{Tech: key, Questions: list})
	}
	return out
}

// Reply describes the assistant output produced for one chat input.
type Reply struct {
	// Assistant holds the complete assistant messages appended to the
	// transcript for this input, in order. Streamed commentary appears
	// here in full even when it was already delivered via deltas.
	Assistant []string
	Stage     Stage
	Open      *QuestionGroup
	Saved     bool
}

// HandleMessage processes one free-text chat input. End keywords terminate
// the conversation from any non-terminal stage; degenerate input triggers
// a steering redirect without touching structured progress; anything else
// is streamed through the gateway as assistant commentary and, in
// asking_questions, additionally recorded as the answer to the first
// unanswered question in insertion order. Gateway failures propagate with
// the session left exactly as it was before the call.
func (e *Engine) HandleMessage(ctx context.Context, s *Session, input string, onDelta func(string)) (Reply, error) {
	if s.Stage == StageDone {
		return Reply{Stage: StageDone}, ErrSessionDone
	}

	trimmed := strings.TrimSpace(input)

	if _, ok := endKeywords[strings.ToLower(trimmed)]; ok {
		return e.finish(s)
	}

	if e.isDegenerate(trimmed) {
		steer, err := e.gateway.Chat(ctx, e.model, []ollama.Message{
			{Role: "system", Content: steeringSystemPrompt},
			{Role: "user", Content: steeringPrompt(trimmed)},
		}, steeringTemperature)
		if err != nil {
			return Reply{}, fmt.Errorf("steering reply: %w", err)
		}
		s.appendUser(input)
		s.appendAssistant(steer)
		return Reply{
			Assistant: []string{steer},
			Stage:     s.Stage,
			Open:      s.OpenQuestions(),
		}, nil
	}

	// Conversational commentary streams over the full transcript plus the
	// pending user message. The transcript is only mutated once the call
	// succeeds so a failed request can be retried cleanly.
	msgs := make([]ollama.Message, len(s.Transcript), len(s.Transcript)+1)
	copy(msgs, s.Transcript)
	msgs = append(msgs, ollama.Message{Role: "user", Content: input})

	commentary, err := e.gateway.ChatStream(ctx, e.model, msgs, e.chatTemperature, onDelta)
	if err != nil {
		return Reply{}, fmt.Errorf("assistant reply: %w", err)
	}

	s.appendUser(input)
	s.appendAssistant(commentary)
	reply := Reply{
		Assistant: []string{commentary},
		Stage:     s.Stage,
	}

	// Answer capture: exactly one answer per input message, attributed to
	// the first unanswered question in iteration order.
	if s.Stage == StageAskingQuestions {
		e.recordAnswer(s, trimmed)
		if s.allAnswered() {
			done, err := e.finish(s)
			if err != nil {
				return Reply{}, err
			}
			reply.Assistant = append(reply.Assistant, done.Assistant...)
			reply.Stage = done.Stage
			reply.Saved = done.Saved
			return reply, nil
		}
	}

	reply.Open = s.OpenQuestions()
	return reply, nil
}

// recordAnswer stores answer against the first unanswered question.
func (e *Engine) recordAnswer(s *Session, answer string) {
	for _, tq := range s.AskedQuestions {
		for _, q := range tq.Questions {
			if _, ok := s.Candidate.Answers[tq.Tech][q]; ok {
				continue
			}
			if s.Candidate.Answers == nil {
				s.Candidate.Answers = map[string]map[string]string{}
			}
			if s.Candidate.Answers[tq.Tech] == nil {
				s.Candidate.Answers[tq.Tech] = map[string]string{}
			}
			s.Candidate.Answers[tq.Tech][q] = answer
			return
		}
	}
}

// finish persists the candidate record, then acknowledges with the
// farewell and freezes the session. Persist-first ordering means a storage
// failure surfaces before the candidate is told the process succeeded; the
// session stays in its prior stage so the action can be retried.
func (e *Engine) finish(s *Session) (Reply, error) {
	if err := e.store.Append(recordFromCandidate(s.Candidate)); err != nil {
		return Reply{}, fmt.Errorf("saving candidate: %w", err)
	}

	s.appendAssistant(farewellMessage)
	s.Stage = StageDone
	return Reply{
		Assistant: []string{farewellMessage},
		Stage:     StageDone,
		Saved:     true,
	}, nil
}

// recordFromCandidate flattens the profile into a persisted record,
// normalizing nil collections so the log always carries arrays and maps.
func recordFromCandidate(c Candidate) storage.Record {
	rec := storage.Record{
		FullName:          c.FullName,
		Email:             c.Email,
		Phone:             c.Phone,
		YearsOfExperience: c.YearsOfExperience,
		DesiredRoles:      c.DesiredRoles,
		Location:          c.Location,
		TechStack:         c.TechStack,
		Answers:           c.Answers,
	}
	if rec.DesiredRoles == nil {
		rec.DesiredRoles = []string{}
	}
	if rec.TechStack == nil {
		rec.TechStack = []string{}
	}
	if rec.Answers == nil {
		rec.Answers = map[string]map[string]string{}
	}
	return rec
}
