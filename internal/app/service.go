package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/surendar1863/student-edge-program/internal/metrics"
	"github.com/surendar1863/student-edge-program/internal/models"
	"github.com/surendar1863/student-edge-program/internal/questionbank"
	"github.com/surendar1863/student-edge-program/internal/scoring"
	"github.com/surendar1863/student-edge-program/internal/store"
	"github.com/surendar1863/student-edge-program/internal/submission"
)

var ErrSubmissionNotFound = errors.New("submission not found")

type Service struct {
	Config  *Config
	Store   store.Store
	Bank    *questionbank.Bank
	Builder *submission.Builder
	Now     func() time.Time
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := NewStore(context.Background(), store.DBConfig{
		DSN:           config.Database.DSN,
		MigrationsDir: config.Database.MigrationsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	bank := questionbank.Load(config.QuestionBank.Sections)

	return New(config, st, bank), nil
}

// New wires a service from already constructed parts. The service owns st
// and closes it in Close.
func New(config *Config, st store.Store, bank *questionbank.Bank) *Service {
	return &Service{
		Config:  config,
		Store:   st,
		Bank:    bank,
		Builder: submission.NewBuilder(config.Submission.ClampLikert),
		Now:     time.Now,
	}
}

func (s *Service) now() time.Time {
	return s.Now().UTC()
}

func (s *Service) ValidateHeaders(headers map[string][]string) bool {
	for _, required := range s.Config.API.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

func (s *Service) storeErr(op string, err error) error {
	if errors.Is(err, models.ErrStoreUnavailable) {
		metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
	}
	return err
}

// Submit validates the answers and replaces the stored record for
// (roll, section). Nothing is written when validation fails.
func (s *Service) Submit(ctx context.Context, sectionName string, subject submission.Subject, responses map[string]any) (*models.Submission, error) {
	section, err := s.Bank.Section(sectionName)
	if err != nil {
		return nil, err
	}

	sub, err := s.Builder.Build(section, subject, responses, s.now())
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(section.Name, "rejected").Inc()
		return nil, err
	}
	if err := sub.Validate(); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(section.Name, "rejected").Inc()
		return nil, models.NewValidationError("", "%v", err)
	}

	if err := s.Store.PutSubmission(ctx, sub); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(section.Name, "failed").Inc()
		return nil, s.storeErr("put_submission", err)
	}

	metrics.SubmissionsTotal.WithLabelValues(section.Name, "accepted").Inc()
	if sub.Score != nil && sub.Total != nil && *sub.Total > 0 {
		metrics.AutoScoreHistogram.WithLabelValues(section.Name).Observe(float64(*sub.Score) / float64(*sub.Total))
	}
	logger.Info.Printf("Stored submission %s (%d answers)", sub.Key(), len(sub.Responses))
	return sub, nil
}

func (s *Service) GetSubmission(ctx context.Context, roll, section string) (*models.Submission, error) {
	sub, err := s.Store.GetSubmission(ctx, roll, section)
	if err != nil {
		return nil, s.storeErr("get_submission", err)
	}
	return sub, nil
}

type MarkInput struct {
	Roll       string    `json:"roll"`
	QuestionID string    `json:"question_id"`
	Marks      float64   `json:"marks"`
	Evaluator  string    `json:"evaluator"`
	Timestamp  time.Time `json:"timestamp"`
	// Section narrows the question lookup when ids repeat across sections.
	Section string `json:"section,omitempty"`
}

// RecordMark replaces the mark stored for (roll, question).
// Concurrent evaluators are not reconciled: the latest timestamp wins.
func (s *Service) RecordMark(ctx context.Context, in MarkInput) error {
	mark := &models.MarkRecord{
		Roll:       strings.TrimSpace(in.Roll),
		QuestionID: strings.TrimSpace(in.QuestionID),
		Marks:      in.Marks,
		Evaluator:  strings.TrimSpace(in.Evaluator),
		Timestamp:  in.Timestamp.UTC(),
	}
	if in.Timestamp.IsZero() {
		mark.Timestamp = s.now()
	}

	if err := s.checkMark(in.Section, mark.QuestionID, mark.Marks); err != nil {
		metrics.MarkWritesTotal.WithLabelValues("faculty_marks", "rejected").Inc()
		return err
	}
	if err := mark.Validate(); err != nil {
		metrics.MarkWritesTotal.WithLabelValues("faculty_marks", "rejected").Inc()
		return models.NewValidationError(mark.QuestionID, "%v", err)
	}

	if err := s.Store.PutMark(ctx, mark); err != nil {
		metrics.MarkWritesTotal.WithLabelValues("faculty_marks", "failed").Inc()
		return s.storeErr("put_mark", err)
	}
	metrics.MarkWritesTotal.WithLabelValues("faculty_marks", "saved").Inc()
	logger.Debug.Printf("Mark %s = %v by %s", mark.Key(), mark.Marks, mark.Evaluator)
	return nil
}

func (s *Service) lookupQuestion(section, questionID string) (models.Question, bool) {
	if section == "" {
		return s.Bank.Question(questionID)
	}
	sec, err := s.Bank.Section(section)
	if err != nil {
		return models.Question{}, false
	}
	return sec.Question(questionID)
}

// checkMark rejects marks outside [0, cap] for questions the bank knows.
func (s *Service) checkMark(section, questionID string, marks float64) error {
	if marks < 0 {
		return models.NewValidationError(questionID, "marks must not be negative, got %v", marks)
	}
	q, ok := s.lookupQuestion(section, questionID)
	if !ok {
		return nil
	}
	if !q.Gradable() {
		return models.NewValidationError(questionID, "question takes no marks")
	}
	if !s.Config.MarksValidated() {
		return nil
	}
	if limit := s.Config.WriteOptions().Cap(q); marks > limit {
		return models.NewValidationError(questionID, "marks %v exceed the cap of %v", marks, limit)
	}
	return nil
}

type BatchResult struct {
	Saved  []string          `json:"saved"`
	Failed map[string]string `json:"failed,omitempty"`
}

// RecordMarks writes one mark per question. Writes are independent: the
// result lists saved and failed keys, and a *models.BatchError is returned
// when anything failed so the caller can retry just those.
func (s *Service) RecordMarks(ctx context.Context, roll, evaluator string, marks map[string]float64) (*BatchResult, error) {
	ids := make([]string, 0, len(marks))
	for id := range marks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	at := s.now()
	result := &BatchResult{Saved: []string{}}
	berr := &models.BatchError{Failed: make(map[string]error)}
	for _, id := range ids {
		key := models.MarkKey(roll, id)
		err := s.RecordMark(ctx, MarkInput{
			Roll:       roll,
			QuestionID: id,
			Marks:      marks[id],
			Evaluator:  evaluator,
			Timestamp:  at,
		})
		if err != nil {
			berr.Failed[key] = err
			continue
		}
		result.Saved = append(result.Saved, key)
	}

	if len(berr.Failed) == 0 {
		return result, nil
	}
	result.Failed = make(map[string]string, len(berr.Failed))
	for key, err := range berr.Failed {
		result.Failed[key] = err.Error()
	}
	logger.Error.Printf("Batch mark save for %s: %d saved, %d failed", roll, len(result.Saved), len(berr.Failed))
	return result, berr
}

type ShortMarkInput struct {
	Roll       string    `json:"roll"`
	Section    string    `json:"section"`
	QuestionID string    `json:"question_id"`
	Marks      float64   `json:"marks"`
	Evaluator  string    `json:"evaluator"`
	Timestamp  time.Time `json:"timestamp"`
}

// RecordShortMark grades a free-text answer and snapshots the answer text
// next to the mark.
func (s *Service) RecordShortMark(ctx context.Context, in ShortMarkInput) (*models.ShortMark, error) {
	section, err := s.Bank.Section(in.Section)
	if err != nil {
		return nil, err
	}
	if err := s.checkMark(section.Name, in.QuestionID, in.Marks); err != nil {
		metrics.MarkWritesTotal.WithLabelValues("short_marks", "rejected").Inc()
		return nil, err
	}

	sub, err := s.GetSubmission(ctx, in.Roll, section.Name)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, models.SubmissionKey(in.Roll, section.Name))
	}
	answer, ok := sub.Answer(in.QuestionID)
	if !ok {
		return nil, models.NewValidationError(in.QuestionID, "no answer in submission %s", sub.Key())
	}

	mark := &models.ShortMark{
		Roll:       sub.Roll,
		Section:    section.Name,
		QuestionID: in.QuestionID,
		AnswerText: answer.String(),
		Marks:      in.Marks,
		Evaluator:  strings.TrimSpace(in.Evaluator),
		Timestamp:  in.Timestamp.UTC(),
	}
	if in.Timestamp.IsZero() {
		mark.Timestamp = s.now()
	}
	if err := mark.Validate(); err != nil {
		metrics.MarkWritesTotal.WithLabelValues("short_marks", "rejected").Inc()
		return nil, models.NewValidationError(in.QuestionID, "%v", err)
	}

	if err := s.Store.PutShortMark(ctx, mark); err != nil {
		metrics.MarkWritesTotal.WithLabelValues("short_marks", "failed").Inc()
		return nil, s.storeErr("put_short_mark", err)
	}
	metrics.MarkWritesTotal.WithLabelValues("short_marks", "saved").Inc()
	return mark, nil
}

// Evaluate reads the stored submission and marks and merges them.
// The view is recomputed on every call.
func (s *Service) Evaluate(ctx context.Context, roll, sectionName string) (*scoring.View, error) {
	section, err := s.Bank.Section(sectionName)
	if err != nil {
		return nil, err
	}

	sub, err := s.GetSubmission(ctx, roll, section.Name)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, models.SubmissionKey(roll, section.Name))
	}

	marks, err := s.Store.ListMarks(ctx, roll)
	if err != nil {
		return nil, s.storeErr("list_marks", err)
	}
	return s.merge(ctx, section, sub, marks)
}

func (s *Service) merge(ctx context.Context, section *models.Section, sub *models.Submission, marks []models.MarkRecord) (*scoring.View, error) {
	shorts, err := s.Store.ListShortMarks(ctx, sub.Roll, section.Name)
	if err != nil {
		return nil, s.storeErr("list_short_marks", err)
	}

	all := make([]models.MarkRecord, 0, len(marks)+len(shorts))
	all = append(all, marks...)
	for _, m := range shorts {
		all = append(all, m.AsMarkRecord())
	}
	return scoring.Merge(section, sub, all)
}

// Report aggregates every section the subject has submitted. Sections
// without a loaded question bank are skipped. Any store failure abandons the
// whole report.
func (s *Service) Report(ctx context.Context, roll string, opts scoring.Options) (*scoring.Report, error) {
	marks, err := s.Store.ListMarks(ctx, roll)
	if err != nil {
		return nil, s.storeErr("list_marks", err)
	}

	var views []*scoring.View
	for _, section := range s.Bank.Sections() {
		sub, err := s.GetSubmission(ctx, roll, section.Name)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			continue
		}
		view, err := s.merge(ctx, section, sub, marks)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %s: %w", sub.Key(), err)
		}
		views = append(views, view)
	}

	report := scoring.Aggregate(opts, views...)
	if report.Roll == "" {
		report.Roll = roll
	}
	for _, t := range report.Sections {
		if t.Max > 0 {
			metrics.SectionScoreHistogram.WithLabelValues(t.Section).Observe(t.Score / float64(t.Max))
		}
	}
	return &report, nil
}

type DashboardRow struct {
	Name    string `json:"name"`
	Roll    string `json:"roll"`
	Section string `json:"section"`
	Score   *int   `json:"score,omitempty"`
	Total   *int   `json:"total,omitempty"`
}

type SectionStat struct {
	Section     string   `json:"section"`
	Submissions int      `json:"submissions"`
	MeanScore   *float64 `json:"mean_score,omitempty"`
}

type Dashboard struct {
	Rows     []DashboardRow `json:"rows"`
	Sections []SectionStat  `json:"sections"`
}

// Dashboard lists every stored submission with its auto score and the mean
// auto score per section.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	subs, err := s.Store.ListSubmissions(ctx)
	if err != nil {
		return nil, s.storeErr("list_submissions", err)
	}

	d := &Dashboard{Rows: make([]DashboardRow, 0, len(subs))}
	type acc struct {
		count, scored, sum int
	}
	stats := make(map[string]*acc)
	var order []string

	for _, sub := range subs {
		d.Rows = append(d.Rows, DashboardRow{
			Name:    sub.Name,
			Roll:    sub.Roll,
			Section: sub.Section,
			Score:   sub.Score,
			Total:   sub.Total,
		})

		a, ok := stats[sub.Section]
		if !ok {
			a = &acc{}
			stats[sub.Section] = a
			order = append(order, sub.Section)
		}
		a.count++
		if sub.Score != nil {
			a.scored++
			a.sum += *sub.Score
		}
	}

	sort.Strings(order)
	for _, name := range order {
		a := stats[name]
		stat := SectionStat{Section: name, Submissions: a.count}
		if a.scored > 0 {
			mean := float64(a.sum) / float64(a.scored)
			stat.MeanScore = &mean
		}
		d.Sections = append(d.Sections, stat)
	}
	return d, nil
}

func (s *Service) Close() error {
	if err := s.Store.Close(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
