package models

import (
	"strings"
	"time"
)

// MarkRecord is an evaluator's mark for one question of one subject.
// Records are replaced by key; the latest timestamp is authoritative.
type MarkRecord struct {
	Roll       string    `json:"Roll" validate:"required"`
	QuestionID string    `json:"QuestionID" validate:"required"`
	Marks      float64   `json:"Marks" validate:"gte=0"`
	Evaluator  string    `json:"Evaluator" validate:"required"`
	Timestamp  time.Time `json:"Timestamp"`
}

func (m *MarkRecord) Key() string {
	return MarkKey(m.Roll, m.QuestionID)
}

func (m *MarkRecord) Validate() error {
	return validate.Struct(m)
}

// ShortMark is the free-text grading variant of a mark. It keeps a copy of
// the answer text so grading exports do not need the submission.
type ShortMark struct {
	Roll       string    `json:"Roll" validate:"required"`
	Section    string    `json:"Section" validate:"required"`
	QuestionID string    `json:"QuestionID" validate:"required"`
	AnswerText string    `json:"AnswerText"`
	Marks      float64   `json:"Marks" validate:"gte=0"`
	Evaluator  string    `json:"Evaluator" validate:"required"`
	Timestamp  time.Time `json:"Timestamp"`
}

func (m *ShortMark) Key() string {
	return ShortMarkKey(m.Roll, m.Section, m.QuestionID)
}

func (m *ShortMark) Validate() error {
	return validate.Struct(m)
}

func (m *ShortMark) AsMarkRecord() MarkRecord {
	return MarkRecord{
		Roll:       m.Roll,
		QuestionID: m.QuestionID,
		Marks:      m.Marks,
		Evaluator:  m.Evaluator,
		Timestamp:  m.Timestamp,
	}
}

func sectionSlug(section string) string {
	return strings.ReplaceAll(section, " ", "_")
}

func SubmissionKey(roll, section string) string {
	return roll + "_" + sectionSlug(section)
}

func MarkKey(roll, questionID string) string {
	return roll + "_" + questionID
}

func ShortMarkKey(roll, section, questionID string) string {
	return roll + "_" + sectionSlug(section) + "_" + questionID
}
