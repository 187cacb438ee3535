package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Valid(t *testing.T) {
	body := []byte(`{
		"question": "What are the most common collision types?",
		"mode": "qa",
		"data": [{"incident_id": 1, "weather_condition": "Clear"}],
		"isFollowUp": true,
		"conversationHistory": [
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"}
		]
	}`)

	req, err := Decode(body)
	require.NoError(t, err)

	assert.Equal(t, "What are the most common collision types?", req.Question)
	assert.Equal(t, ModeQA, req.Mode)
	assert.True(t, req.IsFollowUp)
	require.Len(t, req.Data, 1)
	assert.Equal(t, []string{"incident_id", "weather_condition"}, req.Data[0].Keys())
	require.Len(t, req.History, 2)
	assert.Equal(t, "assistant", *req.History[1].Role)
}

func TestDecode_Defaults(t *testing.T) {
	req, err := Decode([]byte(`{"question":"q","mode":"report"}`))
	require.NoError(t, err)

	assert.False(t, req.IsFollowUp)
	assert.Empty(t, req.Data)
	assert.Empty(t, req.History)
}

func TestDecode_NullOptionalFields(t *testing.T) {
	req, err := Decode([]byte(`{"question":"q","mode":"qa","data":null,"isFollowUp":null,"conversationHistory":null}`))
	require.NoError(t, err)
	assert.False(t, req.IsFollowUp)
}

func TestDecode_IsFollowUpForms(t *testing.T) {
	tests := []struct {
		raw      string
		expected bool
	}{
		{`true`, true},
		{`false`, false},
		{`1`, true},
		{`0`, false},
		{`"1"`, true},
		{`"false"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req, err := Decode([]byte(`{"question":"q","mode":"qa","isFollowUp":` + tt.raw + `}`))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.IsFollowUp)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing question", `{"mode":"qa"}`, "question"},
		{"blank question", `{"question":"   ","mode":"qa"}`, "question"},
		{"numeric question", `{"question":5,"mode":"qa"}`, "question"},
		{"missing mode", `{"question":"q"}`, "mode"},
		{"unknown mode", `{"question":"q","mode":"summary"}`, "mode"},
		{"data not array", `{"question":"q","mode":"qa","data":"rows"}`, "data"},
		{"data object", `{"question":"q","mode":"qa","data":{"incident_id":1}}`, "data"},
		{"bad isFollowUp", `{"question":"q","mode":"qa","isFollowUp":"yes"}`, "isFollowUp"},
		{"history not array", `{"question":"q","mode":"qa","conversationHistory":{}}`, "conversationHistory"},
		{"not json", `question=q`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
			assert.NotEmpty(t, verr.Error())
		})
	}
}

func TestDecode_CollectsEveryField(t *testing.T) {
	_, err := Decode([]byte(`{}`))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
	assert.Equal(t, "The question field is required.", verr.First())
}

func TestValidationError_FirstFollowsDeclaredOrder(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"question before mode", `{"mode":"bogus"}`, "The question field is required."},
		{"data before mode", `{"question":"q","data":"rows"}`, "The data field must be an array."},
		{"mode before isFollowUp", `{"question":"q","mode":"bogus","isFollowUp":"yes"}`, "The selected mode is invalid."},
		{"isFollowUp before history", `{"question":"q","mode":"qa","isFollowUp":"yes","conversationHistory":1}`, "The is follow up field must be true or false."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.expected, verr.First())
		})
	}
}

func TestDecode_ScalarDataRows(t *testing.T) {
	req, err := Decode([]byte(`{"question":"q","mode":"qa","data":[1,"two",null]}`))
	require.NoError(t, err)

	require.Len(t, req.Data, 3)
	assert.Equal(t, []string{ScalarColumn}, req.Data[0].Keys())
	assert.Equal(t, "two", req.Data[1].Text(ScalarColumn))
	assert.Empty(t, req.Data[2].Text(ScalarColumn))
	assert.Equal(t, "value\n1\ntwo\n", RenderTable(req.Data[:2]))
}

func TestDecode_HistoryKeepsMalformedEntries(t *testing.T) {
	req, err := Decode([]byte(`{"question":"q","mode":"qa","conversationHistory":["x",{"role":1,"content":"c"},{"role":"user"}]}`))
	require.NoError(t, err)

	require.Len(t, req.History, 3)
	assert.Nil(t, req.History[0].Role)
	assert.Nil(t, req.History[1].Role)
	assert.Nil(t, req.History[2].Content)
	assert.Empty(t, FilterHistory(req.History))
}
