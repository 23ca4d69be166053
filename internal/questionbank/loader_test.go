package questionbank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surendar1863/student-edge-program/internal/models"
)

const currentLayout = "\ufeffQuestionID,Type,Question,Option1,Option2,Option3,Option4,Correct,ScaleMin,ScaleMax,MaxMarks\n" +
	"P1,info,Read the passage,,,,,,,,\n" +
	"Q1,MCQ,2 + 2,3,4,,,4,,,\n" +
	"L1,likert,Teamwork,,,,,,0,10,\n" +
	"L2,likert,Punctuality,,,,,,,,\n" +
	"S1,short,Describe a challenge,,,,,,,,5\n" +
	",,,,,,,,,,\n"

const legacyLayout = "No,Question,A,B,C,D,Correct\n" +
	"1,Pick the odd one,cat,dog,car,cow,C\n" +
	"2,Capital of France,Rome,Paris,,,Paris\n"

func TestLoadCSV_CurrentLayout(t *testing.T) {
	questions, err := LoadCSV(strings.NewReader(currentLayout), models.TypeMCQ)
	require.NoError(t, err)
	require.Len(t, questions, 5, "blank rows are skipped")

	assert.Equal(t, "P1", questions[0].ID)
	assert.Equal(t, models.Info{}, questions[0].Body)

	assert.Equal(t, models.MCQ{Options: []string{"3", "4"}, Correct: "4"}, questions[1].Body)
	assert.Equal(t, models.Likert{Min: 0, Max: 10}, questions[2].Body)
	assert.Equal(t, models.Likert{Min: 1, Max: 5}, questions[3].Body)

	assert.Equal(t, models.TypeShort, questions[4].Type())
	assert.Equal(t, 5.0, questions[4].MaxMarks)
}

func TestLoadCSV_LegacyLayout(t *testing.T) {
	questions, err := LoadCSV(strings.NewReader(legacyLayout), models.TypeShort)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, "1", questions[0].ID)
	assert.Equal(t, models.MCQ{Options: []string{"cat", "dog", "car", "cow"}, Correct: "car"}, questions[0].Body)
	assert.Equal(t, models.MCQ{Options: []string{"Rome", "Paris"}, Correct: "Paris"}, questions[1].Body)
}

func TestLoadCSV_DefaultTypeAndGeneratedIDs(t *testing.T) {
	questions, err := LoadCSV(strings.NewReader("Question\nWhat went well?\nWhat would you change?\n"), models.TypeShort)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "Q1", questions[0].ID)
	assert.Equal(t, "Q2", questions[1].ID)
	assert.Equal(t, models.Short{}, questions[1].Body)
}

func TestLoadCSV_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "no question column", input: "QuestionID,Type\nQ1,short\n"},
		{name: "unknown type", input: "QuestionID,Type,Question\nQ1,essay,Why?\n"},
		{name: "mcq without options", input: "QuestionID,Type,Question\nQ1,mcq,Why?\n"},
		{name: "correct not an option", input: "QuestionID,Type,Question,Option1,Option2,Correct\nQ1,mcq,Pick,a,b,c\n"},
		{name: "duplicate id", input: "QuestionID,Type,Question\nQ1,short,One\nQ1,short,Two\n"},
		{name: "inverted scale", input: "QuestionID,Type,Question,ScaleMin,ScaleMax\nL1,likert,Rate,5,1\n"},
		{name: "bad max marks", input: "QuestionID,Type,Question,MaxMarks\nS1,short,Why?,-2\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tc.input), models.TypeMCQ)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingSection(t *testing.T) {
	dir := t.TempDir()
	aptitude := filepath.Join(dir, "aptitude.csv")
	require.NoError(t, os.WriteFile(aptitude, []byte(legacyLayout), 0o644))

	bank := Load([]Source{
		{Section: "Aptitude", Path: aptitude},
		{Section: "Verbal", Path: filepath.Join(dir, "missing.csv")},
	})

	section, err := bank.Section("Aptitude")
	require.NoError(t, err)
	assert.Len(t, section.Questions, 2)

	_, err = bank.Section("Verbal")
	assert.ErrorIs(t, err, models.ErrMissingQuestionBank)
	_, err = bank.Section("Quant")
	assert.ErrorIs(t, err, models.ErrMissingQuestionBank)

	require.Len(t, bank.Sections(), 1)

	q, ok := bank.Question("2")
	require.True(t, ok)
	assert.Equal(t, "Capital of France", q.Text)
}

func TestLoad_SectionConfiguredTwice(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")
	require.NoError(t, os.WriteFile(first, []byte(legacyLayout), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("Question\nOnly one\n"), 0o644))

	bank := Load([]Source{
		{Section: "Aptitude", Path: first},
		{Section: "Aptitude", Path: second},
	})

	require.Len(t, bank.Sections(), 1)
	section, err := bank.Section("Aptitude")
	require.NoError(t, err)
	assert.Len(t, section.Questions, 2, "the first source wins")

	twice := &models.Section{Name: "Verbal"}
	assert.Len(t, New(twice, twice).Sections(), 1)
}

func TestSharedQuestionIDs(t *testing.T) {
	apt, err := LoadCSV(strings.NewReader(legacyLayout), models.TypeMCQ)
	require.NoError(t, err)
	verbal, err := LoadCSV(strings.NewReader("No,Question\n1,Synonym of quick\n3,Antonym of slow\n"), models.TypeShort)
	require.NoError(t, err)

	bank := New(
		&models.Section{Name: "Aptitude", Questions: apt},
		&models.Section{Name: "Verbal", Questions: verbal},
	)
	assert.Equal(t, []string{"1"}, bank.SharedQuestionIDs())
}
