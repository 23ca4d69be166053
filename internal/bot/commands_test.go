package bot

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surendar1863/student-edge-program/internal/app"
	"github.com/surendar1863/student-edge-program/internal/scoring"
)

func TestParseMarkArgs(t *testing.T) {
	roll, qid, marks, err := parseMarkArgs([]string{"24bbab110", "Q3", "0.5"})
	require.NoError(t, err)
	assert.Equal(t, "24bbab110", roll)
	assert.Equal(t, "Q3", qid)
	assert.Equal(t, 0.5, marks)

	_, _, _, err = parseMarkArgs([]string{"24bbab110", "Q3"})
	assert.Error(t, err)
	_, _, _, err = parseMarkArgs([]string{"24bbab110", "Q3", "full"})
	assert.Error(t, err)
}

func TestParseBatchArgs(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		expected map[string]float64
		wantErr  bool
	}{
		{
			name:     "several marks",
			args:     []string{"R1", "Q1=1", "Q2=0", "S1=7.5"},
			expected: map[string]float64{"Q1": 1, "Q2": 0, "S1": 7.5},
		},
		{name: "no marks", args: []string{"R1"}, wantErr: true},
		{name: "missing equals", args: []string{"R1", "Q1"}, wantErr: true},
		{name: "missing id", args: []string{"R1", "=1"}, wantErr: true},
		{name: "bad value", args: []string{"R1", "Q1=x"}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			roll, marks, err := parseBatchArgs(tc.args)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "R1", roll)
			assert.Equal(t, tc.expected, marks)
		})
	}
}

func TestEvaluatorName(t *testing.T) {
	assert.Equal(t, "tg:prof_k", evaluatorName(&tgbotapi.User{ID: 42, UserName: "prof_k"}))
	assert.Equal(t, "tg:42", evaluatorName(&tgbotapi.User{ID: 42}))
}

func TestFormatBatchResult(t *testing.T) {
	text := formatBatchResult(&app.BatchResult{
		Saved:  []string{"R1_Q1"},
		Failed: map[string]string{"R1_Q3": "store unavailable", "R1_Q2": "store unavailable"},
	})
	assert.Contains(t, text, "Saved 1 mark(s)")
	assert.Contains(t, text, "Failed 2")
	assert.Less(t, strings.Index(text, "R1_Q2"), strings.Index(text, "R1_Q3"))
}

func TestFormatReport(t *testing.T) {
	avg := 4.5
	report := &scoring.Report{
		Roll: "R1",
		Name: "Asha",
		Sections: []scoring.SectionTotal{
			{Section: "Aptitude", Score: 1, Max: 2},
			{Section: "Self Assessment", Score: 0, Max: 1, Ungraded: 1, LikertAverage: &avg},
		},
		GrandTotal: 1,
		GrandMax:   3,
	}

	text := formatReport(report)
	assert.Contains(t, text, "Aptitude: 1/2")
	assert.Contains(t, text, "(1 not graded yet)")
	assert.Contains(t, text, "avg rating 4.50")
	assert.Contains(t, text, "Total: 1/3")

	assert.Equal(t, "No submissions found for R2", formatReport(&scoring.Report{Roll: "R2"}))
}
