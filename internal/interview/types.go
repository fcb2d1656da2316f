package interview

import (
	"strings"
	"time"

	"github.com/talentscout/scout/internal/ollama"
)

// Stage is a named phase of the conversation state machine. Progression is
// monotonic: greeting → collecting_info → asking_questions → done, with
// collecting_info looping on itself while required fields are missing.
type Stage string

const (
	StageGreeting        Stage = "greeting"
	StageCollectingInfo  Stage = "collecting_info"
	StageAskingQuestions Stage = "asking_questions"
	StageDone            Stage = "done"
)

// Candidate is the profile record assembled during collecting_info.
type Candidate struct {
	FullName          string                       `json:"full_name"`
	Email             string                       `json:"email"`
	Phone             string                       `json:"phone"`
	YearsOfExperience string                       `json:"years_of_experience"`
	DesiredRoles      []string                     `json:"desired_roles"`
	Location          string                       `json:"location"`
	TechStack         []string                     `json:"tech_stack"`
	Answers           map[string]map[string]string `json:"answers"`
}

// Complete reports whether every required field is non-empty, the gate for
// question generation.
func (c Candidate) Complete() bool {
	return c.FullName != "" &&
		c.Email != "" &&
		c.Phone != "" &&
		c.YearsOfExperience != "" &&
		len(c.DesiredRoles) > 0 &&
		c.Location != "" &&
		len(c.TechStack) > 0
}

// TechQuestions is one ordered group of screening questions for a single
// technology label. Groups keep the insertion order of the generated
// output; answers are always attributed in that order.
type TechQuestions struct {
	Tech      string   `json:"tech"`
	Questions []string `json:"questions"`
}

// ProfileForm is the raw seven-field submission from the intake form.
type ProfileForm struct {
	FullName          string `json:"full_name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	YearsOfExperience string `json:"years_of_experience"`
	DesiredRoles      string `json:"desired_roles"`
	Location          string `json:"location"`
	TechStack         string `json:"tech_stack"`
}

// Session is the per-conversation state owned by the controller. One
// session serves one candidate; sessions are independent of each other and
// are not safe for concurrent use.
type Session struct {
	ID         string
	Stage      Stage
	Transcript []ollama.Message
	Candidate  Candidate

	// AskedQuestions is populated exactly once, when collecting_info
	// completes, and is immutable thereafter.
	AskedQuestions []TechQuestions

	CreatedAt  time.Time
	LastActive time.Time
}

// QuestionGroup is the display view of the first technology that still has
// unanswered questions.
type QuestionGroup struct {
	Tech      string   `json:"tech"`
	Remaining []string `json:"remaining"`
}

// OpenQuestions returns the first group (in insertion order) with at least
// one unanswered question, or nil when every question is answered or none
// were generated yet.
func (s *Session) OpenQuestions() *QuestionGroup {
	for _, tq := range s.AskedQuestions {
		answered := s.Candidate.Answers[tq.Tech]
		var remaining []string
		for _, q := range tq.Questions {
			if _, ok := answered[q]; !ok {
				remaining = append(remaining, q)
			}
		}
		if len(remaining) > 0 {
			return &QuestionGroup{Tech: tq.Tech, Remaining: remaining}
		}
	}
	return nil
}

// allAnswered reports whether every technology has an answer recorded for
// every one of its questions.
func (s *Session) allAnswered() bool {
	if len(s.AskedQuestions) == 0 {
		return false
	}
	for _, tq := range s.AskedQuestions {
		if len(s.Candidate.Answers[tq.Tech]) < len(tq.Questions) {
			return false
		}
	}
	return true
}

// VisibleTranscript returns user and assistant messages only; the system
// instruction stays hidden from the candidate.
func (s *Session) VisibleTranscript() []ollama.Message {
	out := make([]ollama.Message, 0, len(s.Transcript))
	for _, m := range s.Transcript {
		if m.Role == "user" || m.Role == "assistant" {
			out = append(out, m)
		}
	}
	return out
}

func (s *Session) appendUser(text string) {
	s.Transcript = append(s.Transcript, ollama.Message{Role: "user", Content: text})
}

func (s *Session) appendAssistant(text string) {
	s.Transcript = append(s.Transcript, ollama.Message{Role: "assistant", Content: text})
}

// SplitList parses a comma-separated field: split on ',', trim whitespace,
// drop empty tokens, preserve order, no deduplication.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
