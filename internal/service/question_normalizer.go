package service

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/schoolpulse/insights-api/internal/models"
)

// defaultQuestionPoints applies when a legacy record carries neither a points
// field nor scored options.
const defaultQuestionPoints = 10

// flexString tolerates historical payloads that stored ids as bare numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// rawQuestion is the union of historical question shapes. Template payloads
// were written by several generations of authoring tools, so every canonical
// field has legacy key aliases.
type rawQuestion struct {
	ID           *flexString       `json:"id"`
	QuestionID   *flexString       `json:"question_id"`
	QuestionText *string           `json:"question_text"`
	Question     *string           `json:"question"`
	Text         *string           `json:"text"`
	QuestionType *string           `json:"question_type"`
	Type         *string           `json:"type"`
	Points       *float64          `json:"points"`
	MaxValue     *float64          `json:"max_value"`
	Options      []json.RawMessage `json:"options"`
}

// rawOption is the union of historical option shapes.
type rawOption struct {
	ID    *flexString `json:"id"`
	Text  *string     `json:"text"`
	Label *string     `json:"label"`
	Value *float64    `json:"value"`
	Score *float64    `json:"score"`
}

// NormalizeQuestions maps a stored template payload onto the canonical
// question schema. Alias precedence per field: id before question_id,
// question_text before question before text, question_type before type.
// Points resolve from points, then max_value, then the highest option value,
// then a fixed default. Legacy rows without ids get positional ones so
// responses stay addressable.
func NormalizeQuestions(raw []byte) ([]models.Question, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []rawQuestion
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode question payload: %w", err)
	}

	out := make([]models.Question, 0, len(rows))
	for i, row := range rows {
		q := models.Question{
			ID:   firstFlex(row.ID, row.QuestionID),
			Text: firstString(row.QuestionText, row.Question, row.Text),
			Type: firstString(row.QuestionType, row.Type),
		}
		if q.ID == "" {
			q.ID = "q" + strconv.Itoa(i+1)
		}
		if q.Type == "" {
			q.Type = "likert"
		}
		q.Options = normalizeOptions(row.Options)
		q.Points = resolvePoints(row.Points, row.MaxValue, q.Options)
		out = append(out, q)
	}
	return out, nil
}

// questionSetMaxScore sums the per-question points of a normalized set.
func questionSetMaxScore(questions []models.Question) float64 {
	var total float64
	for _, q := range questions {
		total += q.Points
	}
	return total
}

// templateMaxScore derives the maximum score for a submission from the stored
// question payload, falling back to a per-response default when the payload
// is unreadable. History and profile views share this so maxima always agree.
func templateMaxScore(logger *zap.Logger, questions []byte, responseCount int) float64 {
	normalized, err := NormalizeQuestions(questions)
	if err != nil || len(normalized) == 0 {
		if err != nil && logger != nil {
			logger.Warn("normalize questions", zap.Error(err))
		}
		return float64(responseCount) * defaultQuestionPoints
	}
	return questionSetMaxScore(normalized)
}

func normalizeOptions(raw []json.RawMessage) []models.QuestionOption {
	if len(raw) == 0 {
		return nil
	}
	out := make([]models.QuestionOption, 0, len(raw))
	for i, entry := range raw {
		// The oldest payloads store options as bare strings; their ordinal
		// position doubles as the scored value.
		var text string
		if err := json.Unmarshal(entry, &text); err == nil {
			value := float64(i)
			out = append(out, models.QuestionOption{ID: strconv.Itoa(i), Text: text, Value: &value})
			continue
		}

		var opt rawOption
		if err := json.Unmarshal(entry, &opt); err != nil {
			continue
		}
		normalized := models.QuestionOption{
			ID:   firstFlex(opt.ID),
			Text: firstString(opt.Text, opt.Label),
		}
		if normalized.ID == "" {
			normalized.ID = strconv.Itoa(i)
		}
		switch {
		case opt.Value != nil:
			normalized.Value = opt.Value
		case opt.Score != nil:
			normalized.Value = opt.Score
		}
		out = append(out, normalized)
	}
	return out
}

func resolvePoints(points, maxValue *float64, options []models.QuestionOption) float64 {
	if points != nil && *points > 0 {
		return *points
	}
	if maxValue != nil && *maxValue > 0 {
		return *maxValue
	}
	var highest float64
	for _, opt := range options {
		if opt.Value != nil && *opt.Value > highest {
			highest = *opt.Value
		}
	}
	if highest > 0 {
		return highest
	}
	return defaultQuestionPoints
}

func firstString(candidates ...*string) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return *c
		}
	}
	return ""
}

func firstFlex(candidates ...*flexString) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return string(*c)
		}
	}
	return ""
}
