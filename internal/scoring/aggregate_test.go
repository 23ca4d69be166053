package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surendar1863/student-edge-program/internal/models"
)

func TestAggregate_AptitudeScenario(t *testing.T) {
	view, err := Merge(aptitudeSection(), aptitudeSubmission(), []models.MarkRecord{
		mark("R1", "Q1", 1, t0),
		mark("R1", "Q2", 0, t0),
	})
	require.NoError(t, err)

	report := Aggregate(DefaultOptions(), view)

	require.Len(t, report.Sections, 1)
	total := report.Sections[0]
	assert.Equal(t, "Aptitude", total.Section)
	assert.Equal(t, 1.0, total.Score)
	assert.Equal(t, 2, total.Max)
	assert.Equal(t, 0, total.Ungraded)
	assert.Equal(t, "1/2", total.String())
	assert.Equal(t, "1/2", report.String())
}

func TestAggregate_TotalIsSumOfContributions(t *testing.T) {
	section := &models.Section{
		Name: "Aptitude",
		Questions: []models.Question{
			{ID: "Q1", Body: models.MCQ{Options: []string{"a", "b"}, Correct: "a"}},
			{ID: "P1", Body: models.Info{}},
			{ID: "Q2", Body: models.MCQ{Options: []string{"a", "b"}, Correct: "a"}},
			{ID: "Q3", Body: models.MCQ{Options: []string{"a", "b"}, Correct: "a"}},
			{ID: "Q4", Body: models.MCQ{Options: []string{"a", "b"}, Correct: "a"}},
		},
	}
	sub := &models.Submission{Roll: "R1", Section: "Aptitude"}
	for _, id := range []string{"Q1", "Q2", "Q3", "Q4"} {
		sub.Responses = append(sub.Responses, models.Answer{QuestionID: id, Type: models.TypeMCQ, Choice: "a"})
	}

	view, err := Merge(section, sub, []models.MarkRecord{
		mark("R1", "Q1", 1, t0),
		mark("R1", "Q2", 0, t0),
		mark("R1", "Q3", 1, t0),
	})
	require.NoError(t, err)

	report := Aggregate(DefaultOptions(), view)
	assert.Equal(t, 2.0, report.GrandTotal)
	assert.Equal(t, 4, report.GrandMax)
	assert.Equal(t, 1, report.Ungraded)
	assert.Equal(t, 4.0, report.GrandCapacity)
}

func TestAggregate_InfoQuestionsNeverCount(t *testing.T) {
	marks := []models.MarkRecord{mark("R1", "Q1", 1, t0), mark("R1", "P1", 1, t0)}

	withInfo, err := Merge(aptitudeSection(), aptitudeSubmission(), marks)
	require.NoError(t, err)

	section := aptitudeSection()
	section.Questions = section.Questions[1:]
	withoutInfo, err := Merge(section, aptitudeSubmission(), marks)
	require.NoError(t, err)

	a := Aggregate(DefaultOptions(), withInfo)
	b := Aggregate(DefaultOptions(), withoutInfo)
	assert.Equal(t, a.GrandTotal, b.GrandTotal)
	assert.Equal(t, a.GrandMax, b.GrandMax)
}

func TestAggregate_Caps(t *testing.T) {
	section := &models.Section{
		Name: "Communication",
		Questions: []models.Question{
			{ID: "S1", Body: models.Short{}},
			{ID: "S2", MaxMarks: 5, Body: models.Short{}},
			{ID: "L1", Body: models.Likert{Min: 1, Max: 5}},
		},
	}
	sub := &models.Submission{
		Roll:    "R1",
		Section: "Communication",
		Responses: []models.Answer{
			{QuestionID: "S1", Type: models.TypeShort, Text: "a"},
			{QuestionID: "S2", Type: models.TypeShort, Text: "b"},
			{QuestionID: "L1", Type: models.TypeLikert, Rating: 4},
		},
	}
	view, err := Merge(section, sub, []models.MarkRecord{
		mark("R1", "S1", 8, t0),
		mark("R1", "S2", 4, t0),
		mark("R1", "L1", 1, t0),
	})
	require.NoError(t, err)

	testCases := []struct {
		name     string
		opts     Options
		score    float64
		capacity float64
	}{
		{name: "default short cap", opts: DefaultOptions(), score: 1 + 4 + 1, capacity: 1 + 5 + 1},
		{name: "export short cap", opts: Options{ShortCap: ExportShortCap}, score: 8 + 4 + 1, capacity: 10 + 5 + 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			total := Summarize(tc.opts, view)
			assert.Equal(t, tc.score, total.Score)
			assert.Equal(t, tc.capacity, total.Capacity)
			assert.Equal(t, 3, total.Max)
		})
	}
}

func TestAggregate_LikertRawAverage(t *testing.T) {
	section := &models.Section{
		Name: "Self Assessment",
		Questions: []models.Question{
			{ID: "L1", Body: models.Likert{Min: 1, Max: 5}},
			{ID: "L2", Body: models.Likert{Min: 1, Max: 5}},
			{ID: "S1", Body: models.Short{}},
		},
	}
	sub := &models.Submission{
		Roll:    "R1",
		Section: "Self Assessment",
		Responses: []models.Answer{
			{QuestionID: "L1", Type: models.TypeLikert, Rating: 4},
			{QuestionID: "L2", Type: models.TypeLikert, Rating: 5},
			{QuestionID: "S1", Type: models.TypeShort, Text: "fine"},
		},
	}
	view, err := Merge(section, sub, []models.MarkRecord{mark("R1", "S1", 1, t0)})
	require.NoError(t, err)

	total := Summarize(Options{LikertMode: LikertRawAverage}, view)
	require.NotNil(t, total.LikertAverage)
	assert.Equal(t, 4.5, *total.LikertAverage)
	assert.Equal(t, 1.0, total.Score)
	assert.Equal(t, 1, total.Max)

	marked := Summarize(DefaultOptions(), view)
	assert.Nil(t, marked.LikertAverage)
	assert.Equal(t, 3, marked.Max)
	assert.Equal(t, 2, marked.Ungraded)
}

func TestAggregate_SectionsKeepViewOrder(t *testing.T) {
	first, err := Merge(aptitudeSection(), aptitudeSubmission(), nil)
	require.NoError(t, err)

	verbal := &models.Section{Name: "Verbal", Questions: []models.Question{{ID: "V1", Body: models.Short{}}}}
	second, err := Merge(verbal, &models.Submission{Roll: "R1", Section: "Verbal"}, nil)
	require.NoError(t, err)

	report := Aggregate(DefaultOptions(), second, nil, first)
	require.Len(t, report.Sections, 2)
	assert.Equal(t, "Verbal", report.Sections[0].Section)
	assert.Equal(t, "Aptitude", report.Sections[1].Section)
	assert.Equal(t, 3, report.GrandMax)

	_, ok := report.Section("Aptitude")
	assert.True(t, ok)
	_, ok = report.Section("Quant")
	assert.False(t, ok)
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.NoError(t, Options{}.Validate())
	assert.Error(t, Options{LikertMode: "median"}.Validate())
	assert.Error(t, Options{ShortCap: -1}.Validate())
}
