package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Answer is the response to one gradable question.
// Only the field matching Type is meaningful.
type Answer struct {
	QuestionID string `validate:"required"`
	Question   string
	Type       QuestionType `validate:"required,oneof=mcq likert short"`
	Choice     string
	Rating     int
	Text       string
	ScaleMin   *int
	ScaleMax   *int
}

// Response returns the raw response value as it is stored.
func (a Answer) Response() any {
	switch a.Type {
	case TypeMCQ:
		return a.Choice
	case TypeLikert:
		return a.Rating
	default:
		return a.Text
	}
}

func (a Answer) String() string {
	switch a.Type {
	case TypeMCQ:
		return a.Choice
	case TypeLikert:
		return strconv.Itoa(a.Rating)
	default:
		return a.Text
	}
}

type answerJSON struct {
	QuestionID *string         `json:"QuestionID"`
	Question   string          `json:"Question"`
	Response   json.RawMessage `json:"Response"`
	Type       QuestionType    `json:"Type"`
	ScaleMin   *int            `json:"ScaleMin,omitempty"`
	ScaleMax   *int            `json:"ScaleMax,omitempty"`
}

func (a Answer) MarshalJSON() ([]byte, error) {
	resp, err := json.Marshal(a.Response())
	if err != nil {
		return nil, err
	}
	id := a.QuestionID
	return json.Marshal(answerJSON{
		QuestionID: &id,
		Question:   a.Question,
		Response:   resp,
		Type:       a.Type,
		ScaleMin:   a.ScaleMin,
		ScaleMax:   a.ScaleMax,
	})
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var aux answerJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.QuestionID == nil || *aux.QuestionID == "" {
		return &SchemaMismatchError{Record: "response", Field: "QuestionID"}
	}

	*a = Answer{
		QuestionID: *aux.QuestionID,
		Question:   aux.Question,
		Type:       aux.Type,
		ScaleMin:   aux.ScaleMin,
		ScaleMax:   aux.ScaleMax,
	}

	var raw any
	if len(aux.Response) > 0 {
		if err := json.Unmarshal(aux.Response, &raw); err != nil {
			return fmt.Errorf("failed to decode response of %s: %w", a.QuestionID, err)
		}
	}

	if a.Type == "" {
		if _, numeric := raw.(float64); numeric {
			a.Type = TypeLikert
		} else {
			a.Type = TypeShort
		}
	}

	switch a.Type {
	case TypeLikert:
		switch v := raw.(type) {
		case float64:
			if v != math.Trunc(v) {
				return &SchemaMismatchError{Record: "likert response " + a.QuestionID, Field: "whole number Response"}
			}
			a.Rating = int(v)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("likert response of %s is not a number: %q", a.QuestionID, v)
			}
			a.Rating = n
		}
	case TypeMCQ:
		a.Choice = stringify(raw)
	default:
		a.Text = stringify(raw)
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Submission is one test-taker's answers for one section.
// A resubmission replaces the stored record as a whole.
type Submission struct {
	Name      string    `json:"Name"`
	Roll      string    `json:"Roll" validate:"required"`
	Section   string    `json:"Section" validate:"required"`
	Timestamp time.Time `json:"Timestamp"`
	Responses []Answer  `json:"Responses" validate:"dive"`
	// Score and Total are the raw auto-grade of an all-mcq section.
	// They are never reconciled with evaluator marks.
	Score *int `json:"Score,omitempty"`
	Total *int `json:"Total,omitempty"`
}

func (s *Submission) Key() string {
	return SubmissionKey(s.Roll, s.Section)
}

func (s *Submission) Validate() error {
	return validate.Struct(s)
}

func (s *Submission) Answer(questionID string) (Answer, bool) {
	for _, a := range s.Responses {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

func (s *Submission) UnmarshalJSON(data []byte) error {
	type plain Submission
	var aux struct {
		plain
		Roll      *string          `json:"Roll"`
		Responses *json.RawMessage `json:"Responses"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Roll == nil {
		return &SchemaMismatchError{Record: "submission", Field: "Roll"}
	}
	if aux.Responses == nil || string(*aux.Responses) == "null" {
		return &SchemaMismatchError{Record: "submission", Field: "Responses"}
	}

	var responses []Answer
	if err := json.Unmarshal(*aux.Responses, &responses); err != nil {
		return err
	}

	*s = Submission(aux.plain)
	s.Roll = *aux.Roll
	s.Responses = responses
	return nil
}
