package interview

import (
	"fmt"
	"strings"
)

// systemPrompt seeds every session transcript and is never shown to the
// candidate directly.
const systemPrompt = `You are Scout, a hiring assistant for a tech recruitment agency.
Your goals:
1) Greet the candidate, explain you will collect basic info and ask technical questions based on their tech stack.
2) Stay concise, professional, and friendly.
3) Only ask for information relevant to hiring (no sensitive/unnecessary data).
4) If the user writes a conversation-ending keyword (quit, exit, bye, stop), gracefully conclude and thank them.
5) If input is unclear or unrelated, ask a short clarifying question and bring the user back to purpose.`

// jsonOnlySystemPrompt frames the question-generation call.
const jsonOnlySystemPrompt = "You are a helpful assistant that outputs strict JSON only."

// steeringSystemPrompt frames the off-topic redirect call.
const steeringSystemPrompt = "Keep it brief and helpful."

const greetingMessage = "Hello! I'm Scout. I'll collect a few details and then ask targeted technical questions based on your tech stack. You can type quit/exit/bye/stop anytime to end the chat."

const farewellMessage = "Thanks for your time! Scout will review your responses and get back to you about next steps."

const fallbackNotice = "Couldn't generate stack-specific questions. I'll ask general questions instead."

// questionGeneratorPrompt asks the model for per-technology screening
// questions as strict JSON.
func questionGeneratorPrompt(techList, yoe, roles string) string {
	var sb strings.Builder
	sb.WriteString("You will generate targeted technical screening questions for each technology from a candidate's declared stack.\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- For EACH technology provided, generate 3 focused, medium-difficulty questions.\n")
	sb.WriteString("- Keep questions concise and practical; avoid trivia.\n")
	sb.WriteString("- Prefer scenario/experience questions that reveal depth.\n")
	sb.WriteString("- Output strictly as JSON like:\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"questions\": {\n")
	sb.WriteString("    \"python\": [\"Q1\", \"Q2\", \"Q3\"],\n")
	sb.WriteString("    \"django\": [\"Q1\", \"Q2\", \"Q3\"]\n")
	sb.WriteString("  }\n")
	sb.WriteString("}\n")
	fmt.Fprintf(&sb, "Technologies: %s\n", techList)
	fmt.Fprintf(&sb, "Candidate level (years of experience): %s\n", yoe)
	fmt.Fprintf(&sb, "Desired position(s): %s", roles)
	return sb.String()
}

// steeringPrompt asks the model for a short redirect when the candidate's
// input looks degenerate.
func steeringPrompt(userMessage string) string {
	return "The user's message wasn't clearly related to hiring screening. " +
		"Provide a brief, helpful clarification and steer the conversation back to collecting required details or asking the technical questions. " +
		"Keep it within 1-2 short sentences.\n" +
		"User message: " + userMessage
}

// fallbackQuestions is the fixed general set used when structured
// generation fails or yields nothing usable. It is never empty: the
// interview never starts with zero questions.
func fallbackQuestions() []TechQuestions {
	return []TechQuestions{{
		Tech: "general",
		Questions: []string{
			"Describe a challenging bug you fixed recently and how you diagnosed it.",
			"How do you design tests for a new feature to ensure reliability?",
			"Explain a time you optimized code for performance. What was your strategy?",
		},
	}}
}
