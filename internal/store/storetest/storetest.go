// Package storetest runs the same behavioural checks against every store
// backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surendar1863/student-edge-program/internal/models"
	"github.com/surendar1863/student-edge-program/internal/store"
)

// Now is millisecond aligned so it survives every backend's encoding.
var Now = time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)

func intPtr(v int) *int {
	return &v
}

func Submission(roll, section string) *models.Submission {
	return &models.Submission{
		Name:      "Asha",
		Roll:      roll,
		Section:   section,
		Timestamp: Now,
		Responses: []models.Answer{
			{QuestionID: "Q1", Question: "2 + 2", Type: models.TypeMCQ, Choice: "4"},
			{QuestionID: "L1", Question: "Teamwork", Type: models.TypeLikert, Rating: 4, ScaleMin: intPtr(1), ScaleMax: intPtr(5)},
			{QuestionID: "S1", Question: "Why?", Type: models.TypeShort, Text: "because"},
		},
		Score: intPtr(1),
		Total: intPtr(2),
	}
}

// Run exercises st. It expects an empty store.
func Run(t *testing.T, st store.Store) {
	ctx := context.Background()

	t.Run("submission round trip", func(t *testing.T) {
		sub := Submission("R1", "Self Assessment")
		require.NoError(t, st.PutSubmission(ctx, sub))

		got, err := st.GetSubmission(ctx, "R1", "Self Assessment")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, sub.Name, got.Name)
		assert.Equal(t, sub.Section, got.Section)
		assert.True(t, sub.Timestamp.Equal(got.Timestamp))
		assert.Equal(t, sub.Responses, got.Responses)
		require.NotNil(t, got.Score)
		assert.Equal(t, 1, *got.Score)
	})

	t.Run("missing submission", func(t *testing.T) {
		got, err := st.GetSubmission(ctx, "nobody", "Self Assessment")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("resubmission replaces the record", func(t *testing.T) {
		first := Submission("R2", "Aptitude")
		require.NoError(t, st.PutSubmission(ctx, first))

		second := Submission("R2", "Aptitude")
		second.Responses = second.Responses[:1]
		second.Timestamp = Now.Add(time.Hour)
		require.NoError(t, st.PutSubmission(ctx, second))
		require.NoError(t, st.PutSubmission(ctx, second))

		got, err := st.GetSubmission(ctx, "R2", "Aptitude")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Len(t, got.Responses, 1)
		assert.True(t, second.Timestamp.Equal(got.Timestamp))

		subs, err := st.ListSubmissions(ctx)
		require.NoError(t, err)
		count := 0
		for _, s := range subs {
			if s.Key() == second.Key() {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("marks keep write order", func(t *testing.T) {
		writes := []models.MarkRecord{
			{Roll: "R3", QuestionID: "Q1", Marks: 0, Evaluator: "a", Timestamp: Now},
			{Roll: "R3", QuestionID: "Q2", Marks: 1, Evaluator: "a", Timestamp: Now},
			{Roll: "R4", QuestionID: "Q1", Marks: 1, Evaluator: "a", Timestamp: Now},
			{Roll: "R3", QuestionID: "Q1", Marks: 0.5, Evaluator: "b", Timestamp: Now.Add(time.Minute)},
		}
		for i := range writes {
			require.NoError(t, st.PutMark(ctx, &writes[i]))
		}

		marks, err := st.ListMarks(ctx, "R3")
		require.NoError(t, err)
		require.Len(t, marks, 2, "a mark is replaced by key")

		assert.Equal(t, "Q2", marks[0].QuestionID)
		assert.Equal(t, "Q1", marks[1].QuestionID)
		assert.Equal(t, 0.5, marks[1].Marks)
		assert.Equal(t, "b", marks[1].Evaluator)
		assert.True(t, writes[3].Timestamp.Equal(marks[1].Timestamp))

		none, err := st.ListMarks(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("short marks by section", func(t *testing.T) {
		writes := []models.ShortMark{
			{Roll: "R5", Section: "Self Assessment", QuestionID: "S1", AnswerText: "because", Marks: 3, Evaluator: "a", Timestamp: Now},
			{Roll: "R5", Section: "Aptitude", QuestionID: "S1", AnswerText: "other", Marks: 1, Evaluator: "a", Timestamp: Now},
			{Roll: "R5", Section: "Self Assessment", QuestionID: "S1", AnswerText: "because", Marks: 7, Evaluator: "b", Timestamp: Now.Add(time.Minute)},
		}
		for i := range writes {
			require.NoError(t, st.PutShortMark(ctx, &writes[i]))
		}

		marks, err := st.ListShortMarks(ctx, "R5", "Self Assessment")
		require.NoError(t, err)
		require.Len(t, marks, 1)
		assert.Equal(t, 7.0, marks[0].Marks)
		assert.Equal(t, "because", marks[0].AnswerText)
		assert.Equal(t, "b", marks[0].Evaluator)
	})
}
