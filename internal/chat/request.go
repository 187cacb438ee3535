// Package chat relays natural-language questions about crash data to a chat
// completion model. It validates requests, renders the attached data sample
// as a CSV table, and assembles the prompt messages for report and Q&A modes.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Modes accepted by the relay.
const (
	ModeReport = "report"
	ModeQA     = "qa"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one prior conversation entry as sent by the client. Role and
// Content are nil when missing or not strings.
type Turn struct {
	Role    *string
	Content *string
}

// Request is a validated chat request.
type Request struct {
	Question   string
	Data       []Row
	Mode       string
	IsFollowUp bool
	History    []Turn
}

// ValidationError lists every invalid field with its messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if msg := e.First(); msg != "" {
		return msg
	}
	return "invalid chat request"
}

// fieldOrder is the order fields are declared in the request rules.
var fieldOrder = []string{"body", "question", "data", "mode", "isFollowUp", "conversationHistory"}

// First returns the first message in declared field order, for summary responses.
func (e *ValidationError) First() string {
	for _, k := range fieldOrder {
		if msgs := e.Fields[k]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

type wireRequest struct {
	Question            json.RawMessage `json:"question"`
	Data                json.RawMessage `json:"data"`
	Mode                json.RawMessage `json:"mode"`
	IsFollowUp          json.RawMessage `json:"isFollowUp"`
	ConversationHistory json.RawMessage `json:"conversationHistory"`
}

// Decode parses and validates a chat request body. Validation failures are
// returned as *ValidationError. Optional fields that are null or missing take
// their defaults.
func Decode(body []byte) (Request, error) {
	var w wireRequest
	if err := json.Unmarshal(body, &w); err != nil {
		verr := &ValidationError{}
		verr.add("body", "The request body must be a JSON object.")
		return Request{}, verr
	}

	var (
		req  Request
		verr ValidationError
	)

	if isNull(w.Question) {
		verr.add("question", "The question field is required.")
	} else if err := json.Unmarshal(w.Question, &req.Question); err != nil {
		verr.add("question", "The question field must be a string.")
	} else if strings.TrimSpace(req.Question) == "" {
		verr.add("question", "The question field is required.")
	}

	if isNull(w.Mode) {
		verr.add("mode", "The mode field is required.")
	} else if err := json.Unmarshal(w.Mode, &req.Mode); err != nil {
		verr.add("mode", "The mode field must be a string.")
	} else if req.Mode != ModeReport && req.Mode != ModeQA {
		verr.add("mode", "The selected mode is invalid.")
	}

	if !isNull(w.Data) {
		if err := json.Unmarshal(w.Data, &req.Data); err != nil {
			verr.add("data", "The data field must be an array.")
		}
	}

	if !isNull(w.IsFollowUp) {
		b, ok := parseBool(w.IsFollowUp)
		if !ok {
			verr.add("isFollowUp", "The is follow up field must be true or false.")
		}
		req.IsFollowUp = b
	}

	if !isNull(w.ConversationHistory) {
		history, err := decodeHistory(w.ConversationHistory)
		if err != nil {
			verr.add("conversationHistory", "The conversation history field must be an array.")
		}
		req.History = history
	}

	if len(verr.Fields) > 0 {
		return Request{}, &verr
	}
	return req, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// parseBool accepts the usual form encodings of a boolean as well as JSON true/false.
func parseBool(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		switch n.String() {
		case "0":
			return false, true
		case "1":
			return true, true
		}
		return false, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "0", "false":
			return false, true
		case "1", "true":
			return true, true
		}
	}
	return false, false
}

// decodeHistory reads the history array. Entries that are not objects, or
// whose role/content are not strings, are kept with nil fields so that
// FilterHistory can drop them.
func decodeHistory(raw json.RawMessage) ([]Turn, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	turns := make([]Turn, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			turns = append(turns, Turn{})
			continue
		}
		turns = append(turns, Turn{Role: stringField(obj["role"]), Content: stringField(obj["content"])})
	}
	return turns, nil
}

func stringField(raw json.RawMessage) *string {
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}
