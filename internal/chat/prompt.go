package chat

import (
	"fmt"
	"strings"
)

const fence = "```"

var reportTemplate = strings.Join([]string{
	"You are a report generation agent.",
	"",
	"Task:",
	"- Generate a crisp, data-driven report based only on the given context below.",
	"- Follow standard report steps: overview, key patterns, contributing factors, and conclusion.",
	"- Output ONLY pure Markdown content.",
	"- Do NOT wrap your response in code blocks (no " + fence + "markdown or " + fence + " tags).",
	"- Do NOT include any preamble or explanation outside the report.",
	"- Start directly with the markdown heading.",
	"- Keep it concise and to the point.",
	"",
	"Context:",
	"Generate a report about: %s based on the below data",
	"%s",
}, "\n")

var qaTemplate = strings.Join([]string{
	"You are a helpful Q&A assistant with access to a dataset.",
	"",
	"Task:",
	"- Answer the user's question accurately based on the data provided below.",
	"- Be concise and direct in your response.",
	"- If the answer requires data analysis, provide clear insights with supporting numbers.",
	"- If the data doesn't contain information to answer the question, politely say so.",
	"- Output ONLY pure Markdown content.",
	"- Do NOT wrap your response in code blocks (no " + fence + "markdown or " + fence + " tags).",
	"- Do NOT include any preamble - start directly with your answer.",
	"",
	"User's Question: %s",
	"",
	"Available Data:",
	"%s",
}, "\n")

var followUpTemplate = strings.Join([]string{
	"You are a helpful assistant. Answer follow-up questions based on the conversation history and the data provided.",
	"",
	"Data context:",
	"%s",
	"",
	"Instructions:",
	"- Provide clear, concise answers in Markdown format",
	"- Do NOT use code blocks or wrap responses in " + fence + "markdown",
	"- Start directly with your answer",
	"- Reference previous conversation context when relevant",
}, "\n")

// ReportPrompt builds the single-turn report generation prompt.
func ReportPrompt(question, table string) string {
	return fmt.Sprintf(reportTemplate, question, table)
}

// QAPrompt builds the single-turn question answering prompt.
func QAPrompt(question, table string) string {
	return fmt.Sprintf(qaTemplate, question, table)
}

// FollowUpSystemPrompt builds the system message that carries the data
// context for a follow-up conversation.
func FollowUpSystemPrompt(table string) string {
	return fmt.Sprintf(followUpTemplate, table)
}

// FilterHistory keeps prior turns that have both role and content and whose
// role is user or assistant.
func FilterHistory(history []Turn) []Message {
	out := make([]Message, 0, len(history))
	for _, t := range history {
		if t.Role == nil || t.Content == nil {
			continue
		}
		if *t.Role != RoleUser && *t.Role != RoleAssistant {
			continue
		}
		out = append(out, Message{Role: *t.Role, Content: *t.Content})
	}
	return out
}

// BuildMessages assembles the completion payload. A first turn is exactly one
// user message holding the mode's prompt. A follow-up is a system message with
// the data context, the filtered history, then the new question verbatim.
func BuildMessages(req Request) []Message {
	table := RenderTable(req.Data)

	if !req.IsFollowUp {
		prompt := QAPrompt(req.Question, table)
		if req.Mode == ModeReport {
			prompt = ReportPrompt(req.Question, table)
		}
		return []Message{{Role: RoleUser, Content: prompt}}
	}

	history := FilterHistory(req.History)
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: FollowUpSystemPrompt(table)})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: req.Question})
	return messages
}
