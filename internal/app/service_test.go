package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/surendar1863/student-edge-program/internal/models"
	"github.com/surendar1863/student-edge-program/internal/questionbank"
	"github.com/surendar1863/student-edge-program/internal/scoring"
	"github.com/surendar1863/student-edge-program/internal/store"
	"github.com/surendar1863/student-edge-program/internal/store/sqlite"
	"github.com/surendar1863/student-edge-program/internal/submission"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) PutSubmission(ctx context.Context, sub *models.Submission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockStore) GetSubmission(ctx context.Context, roll, section string) (*models.Submission, error) {
	args := m.Called(ctx, roll, section)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockStore) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Submission), args.Error(1)
}

func (m *MockStore) PutMark(ctx context.Context, mark *models.MarkRecord) error {
	return m.Called(ctx, mark).Error(0)
}

func (m *MockStore) ListMarks(ctx context.Context, roll string) ([]models.MarkRecord, error) {
	args := m.Called(ctx, roll)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MarkRecord), args.Error(1)
}

func (m *MockStore) PutShortMark(ctx context.Context, mark *models.ShortMark) error {
	return m.Called(ctx, mark).Error(0)
}

func (m *MockStore) ListShortMarks(ctx context.Context, roll, section string) ([]models.ShortMark, error) {
	args := m.Called(ctx, roll, section)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ShortMark), args.Error(1)
}

var now = time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)

func testBank() *questionbank.Bank {
	return questionbank.New(
		&models.Section{
			Name: "Aptitude",
			Questions: []models.Question{
				{ID: "P1", Text: "Passage", Body: models.Info{}},
				{ID: "Q1", Text: "2 + 2", Body: models.MCQ{Options: []string{"3", "4"}, Correct: "4"}},
				{ID: "Q2", Text: "3 * 3", Body: models.MCQ{Options: []string{"6", "9"}, Correct: "9"}},
			},
		},
		&models.Section{
			Name: "Self Assessment",
			Questions: []models.Question{
				{ID: "L1", Text: "Teamwork", Body: models.Likert{Min: 1, Max: 5}},
				{ID: "S1", Text: "Describe a challenge", MaxMarks: 5, Body: models.Short{}},
			},
		},
		&models.Section{
			Name: "Descriptive",
			Questions: []models.Question{
				{ID: "D1", Text: "Explain recursion", Body: models.Short{}},
			},
		},
	)
}

func newTestService(t *testing.T, st store.Store) *Service {
	config := &Config{}
	config.Server.Port = ":0"

	s := New(config, st, testBank())
	s.Now = func() time.Time { return now }
	return s
}

func newSQLiteService(t *testing.T) *Service {
	st, err := sqlite.NewSQLiteStore(":memory:", "../../migrations")
	require.NoError(t, err)

	s := newTestService(t, st)
	t.Cleanup(func() { s.Close() })
	return s
}

var asha = submission.Subject{Name: "Asha", Roll: "R1"}

func TestSubmit_Resubmission(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()
	responses := map[string]any{"Q1": "4", "Q2": "6"}

	first, err := s.Submit(ctx, "Aptitude", asha, responses)
	require.NoError(t, err)
	second, err := s.Submit(ctx, "Aptitude", asha, responses)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := s.GetSubmission(ctx, "R1", "Aptitude")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, second.Responses, stored.Responses)
	assert.Equal(t, 1, *stored.Score)
	assert.Equal(t, 2, *stored.Total)

	dashboard, err := s.Dashboard(ctx)
	require.NoError(t, err)
	assert.Len(t, dashboard.Rows, 1)
}

func TestSubmit_RejectedSubmissionWritesNothing(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()

	_, err := s.Submit(ctx, "Aptitude", asha, map[string]any{"Q1": "4"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	stored, err := s.GetSubmission(ctx, "R1", "Aptitude")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSubmit_UnknownSection(t *testing.T) {
	s := newSQLiteService(t)

	_, err := s.Submit(context.Background(), "Quant", asha, map[string]any{})
	assert.ErrorIs(t, err, models.ErrMissingQuestionBank)
}

func TestEvaluateAndReport(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()

	sub, err := s.Submit(ctx, "Aptitude", asha, map[string]any{"Q1": "4", "Q2": "6"})
	require.NoError(t, err)
	assert.Equal(t, 1, *sub.Score)
	assert.Equal(t, 2, *sub.Total)

	view, err := s.Evaluate(ctx, "R1", "Aptitude")
	require.NoError(t, err)
	for _, e := range view.Entries {
		assert.Equal(t, 0.0, e.Mark)
	}

	result, err := s.RecordMarks(ctx, "R1", "faculty", map[string]float64{"Q1": 1, "Q2": 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"R1_Q1", "R1_Q2"}, result.Saved)

	report, err := s.Report(ctx, "R1", s.Config.ScoringOptions())
	require.NoError(t, err)
	require.Len(t, report.Sections, 1)
	assert.Equal(t, "1/2", report.Sections[0].String())
	assert.Equal(t, "Asha", report.Name)

	_, err = s.Evaluate(ctx, "R2", "Aptitude")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	empty, err := s.Report(ctx, "R2", s.Config.ScoringOptions())
	require.NoError(t, err)
	assert.Equal(t, "R2", empty.Roll)
	assert.Empty(t, empty.Sections)
}

func TestRecordMark_LastWriteWins(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()

	_, err := s.Submit(ctx, "Aptitude", asha, map[string]any{"Q1": "4", "Q2": "9"})
	require.NoError(t, err)

	require.NoError(t, s.RecordMark(ctx, MarkInput{Roll: "R1", QuestionID: "Q1", Marks: 0, Evaluator: "a", Timestamp: now}))
	require.NoError(t, s.RecordMark(ctx, MarkInput{Roll: "R1", QuestionID: "Q1", Marks: 1, Evaluator: "b", Timestamp: now.Add(time.Minute)}))

	view, err := s.Evaluate(ctx, "R1", "Aptitude")
	require.NoError(t, err)
	q1 := view.Entries[1]
	assert.Equal(t, 1.0, q1.Mark)
	assert.Equal(t, "b", q1.Evaluator)
}

func TestRecordMark_Rejections(t *testing.T) {
	testCases := []struct {
		name string
		in   MarkInput
	}{
		{name: "above cap", in: MarkInput{Roll: "R1", QuestionID: "Q1", Marks: 2, Evaluator: "a"}},
		{name: "negative", in: MarkInput{Roll: "R1", QuestionID: "Q1", Marks: -1, Evaluator: "a"}},
		{name: "info question", in: MarkInput{Roll: "R1", QuestionID: "P1", Marks: 0, Evaluator: "a"}},
		{name: "no evaluator", in: MarkInput{Roll: "R1", QuestionID: "Q1", Marks: 1}},
		{name: "no roll", in: MarkInput{QuestionID: "Q1", Marks: 1, Evaluator: "a"}},
	}

	st := &MockStore{}
	s := newTestService(t, st)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.RecordMark(context.Background(), tc.in)
			var verr *models.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
	st.AssertNotCalled(t, "PutMark", mock.Anything, mock.Anything)
}

func TestRecordMark_CapValidationDisabled(t *testing.T) {
	st := &MockStore{}
	st.On("PutMark", mock.Anything, mock.Anything).Return(nil)

	s := newTestService(t, st)
	off := false
	s.Config.Scoring.ValidateMarks = &off

	require.NoError(t, s.RecordMark(context.Background(), MarkInput{Roll: "R1", QuestionID: "Q1", Marks: 3, Evaluator: "a"}))
	st.AssertExpectations(t)
}

func TestRecordMark_ShortAnswerExportCap(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()

	_, err := s.Submit(ctx, "Descriptive", asha, map[string]any{"D1": "A function calling itself"})
	require.NoError(t, err)

	require.NoError(t, s.RecordMark(ctx, MarkInput{Roll: "R1", QuestionID: "D1", Marks: 7, Evaluator: "a"}))

	exported, err := s.Report(ctx, "R1", s.Config.ExportOptions())
	require.NoError(t, err)
	assert.Equal(t, "7/1", exported.String())
	assert.Equal(t, scoring.ExportShortCap, exported.GrandCapacity)

	summary, err := s.Report(ctx, "R1", s.Config.ScoringOptions())
	require.NoError(t, err)
	assert.Equal(t, "1/1", summary.String(), "the default view clamps to its own cap")

	err = s.RecordMark(ctx, MarkInput{Roll: "R1", QuestionID: "D1", Marks: 11, Evaluator: "a"})
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRecordMarks_PartialFailure(t *testing.T) {
	st := &MockStore{}
	var stamps []time.Time
	st.On("PutMark", mock.Anything, mock.MatchedBy(func(m *models.MarkRecord) bool {
		return m.QuestionID == "Q2"
	})).Return(store.Unavailable("save mark R1_Q2", errors.New("connection reset")))
	st.On("PutMark", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stamps = append(stamps, args.Get(1).(*models.MarkRecord).Timestamp)
	}).Return(nil)

	s := newTestService(t, st)
	result, err := s.RecordMarks(context.Background(), "R1", "faculty", map[string]float64{
		"Q1": 1,
		"Q2": 0,
		"L1": 1,
	})

	var berr *models.BatchError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, []string{"R1_Q2"}, berr.Keys())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	assert.Equal(t, []string{"R1_L1", "R1_Q1"}, result.Saved)
	assert.Contains(t, result.Failed, "R1_Q2")

	require.Len(t, stamps, 2)
	assert.Equal(t, stamps[0], stamps[1], "a batch shares one timestamp")
}

func TestRecordShortMark(t *testing.T) {
	s := newSQLiteService(t)
	ctx := context.Background()

	_, err := s.RecordShortMark(ctx, ShortMarkInput{Roll: "R1", Section: "Self Assessment", QuestionID: "S1", Marks: 3, Evaluator: "a"})
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = s.Submit(ctx, "Self Assessment", asha, map[string]any{"L1": 4, "S1": "I led a project"})
	require.NoError(t, err)

	_, err = s.RecordShortMark(ctx, ShortMarkInput{Roll: "R1", Section: "Self Assessment", QuestionID: "S1", Marks: 6, Evaluator: "a"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr, "the bank caps S1 at 5")

	mark, err := s.RecordShortMark(ctx, ShortMarkInput{Roll: "R1", Section: "Self Assessment", QuestionID: "S1", Marks: 4, Evaluator: "a"})
	require.NoError(t, err)
	assert.Equal(t, "I led a project", mark.AnswerText)
	assert.Equal(t, "R1_Self_Assessment_S1", mark.Key())

	view, err := s.Evaluate(ctx, "R1", "Self Assessment")
	require.NoError(t, err)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, 4.0, view.Entries[1].Mark)
	assert.True(t, view.Entries[1].Graded)
	assert.False(t, view.Entries[0].Graded)
}

func TestReport_StoreUnavailable(t *testing.T) {
	st := &MockStore{}
	st.On("ListMarks", mock.Anything, "R1").Return(nil, store.Unavailable("list marks", errors.New("timeout")))

	s := newTestService(t, st)
	_, err := s.Report(context.Background(), "R1", s.Config.ScoringOptions())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	st.AssertExpectations(t)
}

func TestValidateHeaders(t *testing.T) {
	s := newTestService(t, &MockStore{})
	s.Config.API.RequiredHeaders = []HeaderConfig{{Name: "X-Evaluation-Token", Value: "secret"}}

	assert.True(t, s.ValidateHeaders(map[string][]string{"X-Evaluation-Token": {"SECRET"}}))
	assert.False(t, s.ValidateHeaders(map[string][]string{"X-Evaluation-Token": {"nope"}}))
	assert.False(t, s.ValidateHeaders(map[string][]string{}))
}

func TestMarksApplyAcrossSectionsSharingAnID(t *testing.T) {
	shared := questionbank.New(
		&models.Section{Name: "Aptitude", Questions: []models.Question{{ID: "1", Body: models.Short{}}}},
		&models.Section{Name: "Verbal", Questions: []models.Question{{ID: "1", Body: models.Short{}}}},
	)
	st, err := sqlite.NewSQLiteStore(":memory:", "../../migrations")
	require.NoError(t, err)
	config := &Config{}
	s := New(config, st, shared)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	for _, section := range []string{"Aptitude", "Verbal"} {
		_, err := s.Submit(ctx, section, asha, map[string]any{"1": "answer"})
		require.NoError(t, err)
	}
	require.NoError(t, s.RecordMark(ctx, MarkInput{Roll: "R1", QuestionID: "1", Marks: 1, Evaluator: "a", Section: "Aptitude"}))

	report, err := s.Report(ctx, "R1", config.ScoringOptions())
	require.NoError(t, err)
	assert.Equal(t, "2/2", report.String(), "a mark key carries no section")
}
