package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/surendar1863/student-edge-program/internal/models"
)

// BaseStore provides the document collections on top of any sqlx database.
// Converter rewrites "?" placeholders into the dialect's form. NextSeq
// returns the SQL expression for the next write sequence number of a table.
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
	NextSeq   func(table string) string
}

// MaxSeqPlusOne is a NextSeq for databases that serialize writers.
func MaxSeqPlusOne(table string) string {
	return fmt.Sprintf("(SELECT COALESCE(MAX(seq), 0) + 1 FROM %s)", table)
}

func (s *BaseStore) nextSeq(table string) string {
	if s.NextSeq == nil {
		return MaxSeqPlusOne(table)
	}
	return s.NextSeq(table)
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory in name order,
// translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".sql") {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		query := string(content)
		if translateSQL != nil {
			query = translateSQL(query)
		}

		logger.Info.Printf("Applying migration: %s", name)
		if _, err := s.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *BaseStore) PutSubmission(ctx context.Context, sub *models.Submission) error {
	row, err := newSubmissionRow(sub)
	if err != nil {
		return err
	}
	_, err = s.DB.NamedExecContext(ctx, `
		INSERT INTO student_responses (doc_key, name, roll, section, timestamp, responses, score, total)
		VALUES (:doc_key, :name, :roll, :section, :timestamp, :responses, :score, :total)
		ON CONFLICT(doc_key) DO UPDATE SET
		name = excluded.name,
		roll = excluded.roll,
		section = excluded.section,
		timestamp = excluded.timestamp,
		responses = excluded.responses,
		score = excluded.score,
		total = excluded.total
	`, row)
	if err != nil {
		return Unavailable("save submission "+row.DocKey, err)
	}
	return nil
}

func (s *BaseStore) GetSubmission(ctx context.Context, roll, section string) (*models.Submission, error) {
	var row submissionRow
	query := s.Converter(`
		SELECT doc_key, name, roll, section, timestamp, responses, score, total
		FROM student_responses
		WHERE doc_key = ?
	`)

	err := s.DB.GetContext(ctx, &row, query, models.SubmissionKey(roll, section))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Unavailable("get submission", err)
	}
	return row.toModel()
}

func (s *BaseStore) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	var rows []submissionRow
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT doc_key, name, roll, section, timestamp, responses, score, total
		FROM student_responses
		ORDER BY doc_key
	`)
	if err != nil {
		return nil, Unavailable("list submissions", err)
	}

	subs := make([]models.Submission, 0, len(rows))
	for _, row := range rows {
		sub, err := row.toModel()
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, nil
}

func (s *BaseStore) PutMark(ctx context.Context, mark *models.MarkRecord) error {
	row := markRow{
		DocKey:     mark.Key(),
		Roll:       mark.Roll,
		QuestionID: mark.QuestionID,
		Marks:      mark.Marks,
		Evaluator:  mark.Evaluator,
		Timestamp:  mark.Timestamp.UnixMilli(),
	}
	// seq keeps write order for marks written within the same millisecond
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO faculty_marks (doc_key, roll, question_id, marks, evaluator, timestamp, seq)
		VALUES (:doc_key, :roll, :question_id, :marks, :evaluator, :timestamp, `+s.nextSeq("faculty_marks")+`)
		ON CONFLICT(doc_key) DO UPDATE SET
		marks = excluded.marks,
		evaluator = excluded.evaluator,
		timestamp = excluded.timestamp,
		seq = excluded.seq
	`, row)
	if err != nil {
		return Unavailable("save mark "+row.DocKey, err)
	}
	return nil
}

func (s *BaseStore) ListMarks(ctx context.Context, roll string) ([]models.MarkRecord, error) {
	var rows []markRow
	query := s.Converter(`
		SELECT doc_key, roll, question_id, marks, evaluator, timestamp
		FROM faculty_marks
		WHERE roll = ?
		ORDER BY seq ASC, doc_key ASC
	`)
	if err := s.DB.SelectContext(ctx, &rows, query, roll); err != nil {
		return nil, Unavailable("list marks", err)
	}

	marks := make([]models.MarkRecord, 0, len(rows))
	for _, row := range rows {
		marks = append(marks, row.toModel())
	}
	return marks, nil
}

func (s *BaseStore) PutShortMark(ctx context.Context, mark *models.ShortMark) error {
	row := shortMarkRow{
		DocKey:     mark.Key(),
		Roll:       mark.Roll,
		Section:    mark.Section,
		QuestionID: mark.QuestionID,
		AnswerText: mark.AnswerText,
		Marks:      mark.Marks,
		Evaluator:  mark.Evaluator,
		Timestamp:  mark.Timestamp.UnixMilli(),
	}
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO short_marks (doc_key, roll, section, question_id, answer_text, marks, evaluator, timestamp, seq)
		VALUES (:doc_key, :roll, :section, :question_id, :answer_text, :marks, :evaluator, :timestamp, `+s.nextSeq("short_marks")+`)
		ON CONFLICT(doc_key) DO UPDATE SET
		answer_text = excluded.answer_text,
		marks = excluded.marks,
		evaluator = excluded.evaluator,
		timestamp = excluded.timestamp,
		seq = excluded.seq
	`, row)
	if err != nil {
		return Unavailable("save short mark "+row.DocKey, err)
	}
	return nil
}

func (s *BaseStore) ListShortMarks(ctx context.Context, roll, section string) ([]models.ShortMark, error) {
	var rows []shortMarkRow
	query := s.Converter(`
		SELECT doc_key, roll, section, question_id, answer_text, marks, evaluator, timestamp
		FROM short_marks
		WHERE roll = ?
		AND section = ?
		ORDER BY seq ASC, doc_key ASC
	`)
	if err := s.DB.SelectContext(ctx, &rows, query, roll, section); err != nil {
		return nil, Unavailable("list short marks", err)
	}

	marks := make([]models.ShortMark, 0, len(rows))
	for _, row := range rows {
		marks = append(marks, row.toModel())
	}
	return marks, nil
}
