package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/surendar1863/student-edge-program/internal/models"
)

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
	DBTypeRedis    DatabaseType = "redis"
)

type DBConfig struct {
	DSN           string
	Type          DatabaseType
	MigrationsDir string
}

// submissionRow is the relational shape of a submission document.
// Timestamps are unix milliseconds.
type submissionRow struct {
	DocKey    string `db:"doc_key"`
	Name      string `db:"name"`
	Roll      string `db:"roll"`
	Section   string `db:"section"`
	Timestamp int64  `db:"timestamp"`
	Responses string `db:"responses"`
	Score     *int64 `db:"score"`
	Total     *int64 `db:"total"`
}

func newSubmissionRow(sub *models.Submission) (*submissionRow, error) {
	responses, err := json.Marshal(sub.Responses)
	if err != nil {
		return nil, fmt.Errorf("failed to encode responses: %w", err)
	}
	row := &submissionRow{
		DocKey:    sub.Key(),
		Name:      sub.Name,
		Roll:      sub.Roll,
		Section:   sub.Section,
		Timestamp: sub.Timestamp.UnixMilli(),
		Responses: string(responses),
	}
	if sub.Score != nil {
		v := int64(*sub.Score)
		row.Score = &v
	}
	if sub.Total != nil {
		v := int64(*sub.Total)
		row.Total = &v
	}
	return row, nil
}

func (r *submissionRow) toModel() (*models.Submission, error) {
	if r.Roll == "" {
		return nil, &models.SchemaMismatchError{Record: "submission " + r.DocKey, Field: "Roll"}
	}
	if r.Responses == "" || r.Responses == "null" {
		return nil, &models.SchemaMismatchError{Record: "submission " + r.DocKey, Field: "Responses"}
	}
	var responses []models.Answer
	if err := json.Unmarshal([]byte(r.Responses), &responses); err != nil {
		return nil, fmt.Errorf("failed to decode responses of %s: %w", r.DocKey, err)
	}
	sub := &models.Submission{
		Name:      r.Name,
		Roll:      r.Roll,
		Section:   r.Section,
		Timestamp: time.UnixMilli(r.Timestamp).UTC(),
		Responses: responses,
	}
	if r.Score != nil {
		v := int(*r.Score)
		sub.Score = &v
	}
	if r.Total != nil {
		v := int(*r.Total)
		sub.Total = &v
	}
	return sub, nil
}

type markRow struct {
	DocKey     string  `db:"doc_key"`
	Roll       string  `db:"roll"`
	QuestionID string  `db:"question_id"`
	Marks      float64 `db:"marks"`
	Evaluator  string  `db:"evaluator"`
	Timestamp  int64   `db:"timestamp"`
}

func (r markRow) toModel() models.MarkRecord {
	return models.MarkRecord{
		Roll:       r.Roll,
		QuestionID: r.QuestionID,
		Marks:      r.Marks,
		Evaluator:  r.Evaluator,
		Timestamp:  time.UnixMilli(r.Timestamp).UTC(),
	}
}

type shortMarkRow struct {
	DocKey     string  `db:"doc_key"`
	Roll       string  `db:"roll"`
	Section    string  `db:"section"`
	QuestionID string  `db:"question_id"`
	AnswerText string  `db:"answer_text"`
	Marks      float64 `db:"marks"`
	Evaluator  string  `db:"evaluator"`
	Timestamp  int64   `db:"timestamp"`
}

func (r shortMarkRow) toModel() models.ShortMark {
	return models.ShortMark{
		Roll:       r.Roll,
		Section:    r.Section,
		QuestionID: r.QuestionID,
		AnswerText: r.AnswerText,
		Marks:      r.Marks,
		Evaluator:  r.Evaluator,
		Timestamp:  time.UnixMilli(r.Timestamp).UTC(),
	}
}
