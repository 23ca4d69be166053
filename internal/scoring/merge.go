package scoring

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/surendar1863/student-edge-program/internal/models"
)

// Entry is one question of an evaluation view with its current mark.
type Entry struct {
	Question models.Question
	Answer   *models.Answer
	// Mark is 0 when no mark record exists; Graded tells the two apart.
	Mark      float64
	Graded    bool
	Evaluator string
	MarkedAt  time.Time
}

func (e Entry) Gradable() bool {
	return e.Question.Gradable()
}

func (e Entry) MarshalJSON() ([]byte, error) {
	out := struct {
		QuestionID string     `json:"question_id"`
		Question   string     `json:"question"`
		Type       string     `json:"type"`
		Gradable   bool       `json:"gradable"`
		Response   any        `json:"response,omitempty"`
		Mark       float64    `json:"mark"`
		Graded     bool       `json:"graded"`
		Evaluator  string     `json:"evaluator,omitempty"`
		MarkedAt   *time.Time `json:"marked_at,omitempty"`
		Options    []string   `json:"options,omitempty"`
		Scale      *[2]int    `json:"scale,omitempty"`
	}{
		QuestionID: e.Question.ID,
		Question:   e.Question.Text,
		Type:       string(e.Question.Type()),
		Gradable:   e.Gradable(),
		Mark:       e.Mark,
		Graded:     e.Graded,
		Evaluator:  e.Evaluator,
	}
	if e.Answer != nil {
		out.Response = e.Answer.Response()
	}
	if e.Graded {
		at := e.MarkedAt
		out.MarkedAt = &at
	}
	switch body := e.Question.Body.(type) {
	case models.MCQ:
		out.Options = body.Options
	case models.Likert:
		out.Scale = &[2]int{body.Min, body.Max}
	}
	return json.Marshal(out)
}

// View joins one subject's answers for one section with their current marks.
// It is derived on every read and never stored.
type View struct {
	Roll        string    `json:"roll"`
	Name        string    `json:"name"`
	Section     string    `json:"section"`
	SubmittedAt time.Time `json:"submitted_at"`
	AutoScore   *int      `json:"auto_score,omitempty"`
	AutoTotal   *int      `json:"auto_total,omitempty"`
	Entries     []Entry   `json:"entries"`
}

// Merge builds the evaluation view of sub. Entries follow the section's
// question order, info questions included. For every question the mark with
// the latest timestamp wins; on equal timestamps the later one in marks wins.
// Marks of other subjects are ignored.
func Merge(section *models.Section, sub *models.Submission, marks []models.MarkRecord) (*View, error) {
	if sub == nil {
		return nil, fmt.Errorf("no submission to merge")
	}
	if section.Name != sub.Section {
		return nil, &models.SchemaMismatchError{Record: "submission " + sub.Key(), Field: "Section " + section.Name}
	}

	latest := latestMarks(sub.Roll, marks)

	view := &View{
		Roll:        sub.Roll,
		Name:        sub.Name,
		Section:     sub.Section,
		SubmittedAt: sub.Timestamp,
		AutoScore:   sub.Score,
		AutoTotal:   sub.Total,
		Entries:     make([]Entry, 0, len(section.Questions)),
	}

	inBank := make(map[string]bool, len(section.Questions))
	for _, q := range section.Questions {
		inBank[q.ID] = true
		entry := Entry{Question: q}
		if q.Gradable() {
			if a, ok := sub.Answer(q.ID); ok {
				entry.Answer = &a
			}
			applyMark(&entry, latest)
		}
		view.Entries = append(view.Entries, entry)
	}

	// answers to questions since dropped from the bank keep their marks
	for _, a := range sub.Responses {
		if inBank[a.QuestionID] {
			continue
		}
		inBank[a.QuestionID] = true
		entry := Entry{Question: questionFromAnswer(a), Answer: &a}
		applyMark(&entry, latest)
		view.Entries = append(view.Entries, entry)
	}

	return view, nil
}

func latestMarks(roll string, marks []models.MarkRecord) map[string]models.MarkRecord {
	latest := make(map[string]models.MarkRecord)
	for _, m := range marks {
		if m.Roll != roll {
			continue
		}
		cur, ok := latest[m.QuestionID]
		if !ok || !m.Timestamp.Before(cur.Timestamp) {
			latest[m.QuestionID] = m
		}
	}
	return latest
}

func applyMark(entry *Entry, latest map[string]models.MarkRecord) {
	m, ok := latest[entry.Question.ID]
	if !ok {
		return
	}
	entry.Mark = m.Marks
	entry.Graded = true
	entry.Evaluator = m.Evaluator
	entry.MarkedAt = m.Timestamp
}

func questionFromAnswer(a models.Answer) models.Question {
	q := models.Question{ID: a.QuestionID, Text: a.Question}
	switch a.Type {
	case models.TypeMCQ:
		q.Body = models.MCQ{}
	case models.TypeLikert:
		l := models.Likert{Min: a.Rating, Max: a.Rating}
		if a.ScaleMin != nil {
			l.Min = *a.ScaleMin
		}
		if a.ScaleMax != nil {
			l.Max = *a.ScaleMax
		}
		q.Body = l
	default:
		q.Body = models.Short{}
	}
	return q
}
