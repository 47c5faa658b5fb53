package core

import (
	"strings"

	"flashconcards-backend/internal/models"
)

// maxCourseContextRunes bounds how much of the edital is inlined into a prompt.
const maxCourseContextRunes = 6000

// PromptContext is the conversation context assembled by a chat surface.
type PromptContext struct {
	Persona       string               // Instructions describing the assistant for this surface
	CourseContext string               // Edital or course prompt text grounding the answer
	StudySummary  string               // The student's study-progress summary
	History       []models.ChatMessage // Recent messages, oldest first
}

// BuildPrompt flattens the context and the question into the single prompt
// string the providers accept. Only the last historyLimit messages are kept.
func BuildPrompt(pc PromptContext, question string, historyLimit int) string {
	var sb strings.Builder

	if p := strings.TrimSpace(pc.Persona); p != "" {
		sb.WriteString(p)
		sb.WriteString("\n\n")
	}

	if cc := strings.TrimSpace(pc.CourseContext); cc != "" {
		sb.WriteString("CONTEXTO DO CURSO (edital):\n")
		sb.WriteString(truncateRunes(cc, maxCourseContextRunes))
		sb.WriteString("\n\n")
	}

	if ss := strings.TrimSpace(pc.StudySummary); ss != "" {
		sb.WriteString("PROGRESSO DO ALUNO:\n")
		sb.WriteString(ss)
		sb.WriteString("\n\n")
	}

	history := pc.History
	if historyLimit >= 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	if len(history) > 0 {
		sb.WriteString("HISTÓRICO DA CONVERSA:\n")
		for _, m := range history {
			if m.Sender == models.SenderAI {
				sb.WriteString("Mentor: ")
			} else {
				sb.WriteString("Aluno: ")
			}
			sb.WriteString(strings.TrimSpace(m.Text))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("PERGUNTA DO ALUNO:\n")
	sb.WriteString(strings.TrimSpace(question))
	return sb.String()
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
