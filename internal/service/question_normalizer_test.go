package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeQuestionsAliasPrecedence(t *testing.T) {
	payload := []byte(`[
		{"id": "q-main", "question_id": "q-legacy", "question_text": "Primary", "question": "Secondary", "text": "Tertiary", "question_type": "scale", "type": "likert", "points": 4}
	]`)

	questions, err := NormalizeQuestions(payload)
	require.NoError(t, err)
	require.Len(t, questions, 1)

	q := questions[0]
	assert.Equal(t, "q-main", q.ID)
	assert.Equal(t, "Primary", q.Text)
	assert.Equal(t, "scale", q.Type)
	assert.Equal(t, 4.0, q.Points)
}

func TestNormalizeQuestionsLegacyAliases(t *testing.T) {
	payload := []byte(`[
		{"question_id": 7, "question": "How often do you feel anxious?", "type": "single_choice"}
	]`)

	questions, err := NormalizeQuestions(payload)
	require.NoError(t, err)
	require.Len(t, questions, 1)

	q := questions[0]
	assert.Equal(t, "7", q.ID)
	assert.Equal(t, "How often do you feel anxious?", q.Text)
	assert.Equal(t, "single_choice", q.Type)
}

func TestNormalizeQuestionsDefaults(t *testing.T) {
	payload := []byte(`[
		{"text": "First"},
		{"text": "Second"}
	]`)

	questions, err := NormalizeQuestions(payload)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, "q1", questions[0].ID)
	assert.Equal(t, "q2", questions[1].ID)
	assert.Equal(t, "likert", questions[0].Type)
	assert.Equal(t, float64(defaultQuestionPoints), questions[0].Points)
}

func TestNormalizeQuestionsPointsFallbackChain(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    float64
	}{
		{name: "points wins", payload: `[{"points": 6, "max_value": 9}]`, want: 6},
		{name: "zero points falls through", payload: `[{"points": 0, "max_value": 9}]`, want: 9},
		{name: "max_value next", payload: `[{"max_value": 8}]`, want: 8},
		{name: "highest option value", payload: `[{"options": [{"text": "A", "value": 1}, {"text": "B", "value": 5}]}]`, want: 5},
		{name: "default when nothing scores", payload: `[{"options": [{"text": "A"}, {"text": "B"}]}]`, want: defaultQuestionPoints},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			questions, err := NormalizeQuestions([]byte(tc.payload))
			require.NoError(t, err)
			require.Len(t, questions, 1)
			assert.Equal(t, tc.want, questions[0].Points)
		})
	}
}

func TestNormalizeQuestionsBareStringOptions(t *testing.T) {
	payload := []byte(`[
		{"text": "Frequency", "options": ["Never", "Sometimes", "Often", "Always"]}
	]`)

	questions, err := NormalizeQuestions(payload)
	require.NoError(t, err)
	require.Len(t, questions, 1)

	opts := questions[0].Options
	require.Len(t, opts, 4)
	assert.Equal(t, "0", opts[0].ID)
	assert.Equal(t, "Never", opts[0].Text)
	require.NotNil(t, opts[3].Value)
	assert.Equal(t, 3.0, *opts[3].Value)

	// Ordinal option values double as scores, so the top ordinal is the max.
	assert.Equal(t, 3.0, questions[0].Points)
}

func TestNormalizeQuestionsOptionAliases(t *testing.T) {
	payload := []byte(`[
		{"text": "Mood", "options": [{"id": 2, "label": "Low", "score": 2.5}]}
	]`)

	questions, err := NormalizeQuestions(payload)
	require.NoError(t, err)
	require.Len(t, questions[0].Options, 1)

	opt := questions[0].Options[0]
	assert.Equal(t, "2", opt.ID)
	assert.Equal(t, "Low", opt.Text)
	require.NotNil(t, opt.Value)
	assert.Equal(t, 2.5, *opt.Value)
}

func TestNormalizeQuestionsEmptyAndBadPayload(t *testing.T) {
	questions, err := NormalizeQuestions(nil)
	require.NoError(t, err)
	assert.Nil(t, questions)

	_, err = NormalizeQuestions([]byte(`{"not": "a list"`))
	require.Error(t, err)
}

func TestQuestionSetMaxScore(t *testing.T) {
	payload := []byte(`[
		{"text": "A", "points": 4},
		{"text": "B", "max_value": 6}
	]`)
	questions, err := NormalizeQuestions(payload)
	require.NoError(t, err)
	assert.Equal(t, 10.0, questionSetMaxScore(questions))
}

func TestTemplateMaxScore(t *testing.T) {
	payload := []byte(`[{"text": "A", "points": 4}, {"text": "B", "points": 3}]`)
	assert.Equal(t, 7.0, templateMaxScore(zap.NewNop(), payload, 5))

	// Undecodable and empty payloads fall back to the per-response default.
	assert.Equal(t, 30.0, templateMaxScore(zap.NewNop(), []byte(`{broken`), 3))
	assert.Equal(t, 20.0, templateMaxScore(zap.NewNop(), []byte(`[]`), 2))
	assert.Equal(t, 0.0, templateMaxScore(zap.NewNop(), nil, 0))
}
