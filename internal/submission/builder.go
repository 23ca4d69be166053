package submission

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/surendar1863/student-edge-program/internal/models"
)

type Subject struct {
	Name string `json:"name"`
	Roll string `json:"roll"`
}

// Builder turns raw answers into a Submission. It never touches a store.
type Builder struct {
	// ClampLikert pulls out-of-range ratings into the scale instead of
	// rejecting them.
	ClampLikert bool
}

func NewBuilder(clampLikert bool) *Builder {
	return &Builder{ClampLikert: clampLikert}
}

// Build validates responses against the section and assembles the record.
// responses maps question id to the raw value, as decoded from JSON.
func (b *Builder) Build(section *models.Section, subject Subject, responses map[string]any, at time.Time) (*models.Submission, error) {
	verr := &models.ValidationError{}
	if strings.TrimSpace(subject.Roll) == "" {
		verr.Add("", "roll is required")
	}

	// values sent for info questions are ignored
	for id := range responses {
		if _, ok := section.Question(id); !ok {
			verr.Add(id, "unknown question")
		}
	}

	sub := &models.Submission{
		Name:      strings.TrimSpace(subject.Name),
		Roll:      strings.TrimSpace(subject.Roll),
		Section:   section.Name,
		Timestamp: at.UTC(),
	}

	for _, q := range section.Questions {
		raw, present := responses[q.ID]
		answer := models.Answer{QuestionID: q.ID, Question: q.Text, Type: q.Type()}

		switch body := q.Body.(type) {
		case models.Info:
			continue
		case models.MCQ:
			choice, err := b.mcq(body, raw, present)
			if err != nil {
				verr.Add(q.ID, "%v", err)
				continue
			}
			answer.Choice = choice
		case models.Likert:
			rating, err := b.likert(body, raw, present)
			if err != nil {
				verr.Add(q.ID, "%v", err)
				continue
			}
			answer.Rating = rating
			answer.ScaleMin = intPtr(body.Min)
			answer.ScaleMax = intPtr(body.Max)
		case models.Short:
			text, err := b.short(raw, present)
			if err != nil {
				verr.Add(q.ID, "%v", err)
				continue
			}
			answer.Text = text
		default:
			panic(fmt.Sprintf("unhandled question body %T", body))
		}
		sub.Responses = append(sub.Responses, answer)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if section.AutoGradable() {
		score, total := AutoScore(section, sub)
		sub.Score = &score
		sub.Total = &total
	}
	return sub, nil
}

// AutoScore counts answers matching the correct option.
func AutoScore(section *models.Section, sub *models.Submission) (score, total int) {
	for _, q := range section.Gradable() {
		total++
		mcq, ok := q.Body.(models.MCQ)
		if !ok || mcq.Correct == "" {
			continue
		}
		if a, ok := sub.Answer(q.ID); ok && a.Choice == mcq.Correct {
			score++
		}
	}
	return score, total
}

func (b *Builder) mcq(body models.MCQ, raw any, present bool) (string, error) {
	if !present || raw == nil {
		return "", fmt.Errorf("an option must be selected")
	}
	choice, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("expected an option string, got %T", raw)
	}
	if !body.HasOption(choice) {
		return "", fmt.Errorf("%q is not one of the options", choice)
	}
	return choice, nil
}

func (b *Builder) likert(body models.Likert, raw any, present bool) (int, error) {
	if !present || raw == nil {
		return 0, fmt.Errorf("a rating is required")
	}
	rating, err := toInt(raw)
	if err != nil {
		return 0, err
	}
	if rating < body.Min || rating > body.Max {
		if !b.ClampLikert {
			return 0, fmt.Errorf("rating %d is outside %d..%d", rating, body.Min, body.Max)
		}
		rating = min(max(rating, body.Min), body.Max)
	}
	return rating, nil
}

func (b *Builder) short(raw any, present bool) (string, error) {
	if !present || raw == nil {
		return "", nil
	}
	text, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("expected text, got %T", raw)
	}
	return text, nil
}

func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("rating %v is not a whole number", v)
		}
		return int(v), nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("rating %q is not a whole number", v)
		}
		return n, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("rating %q is not a whole number", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected a whole number, got %T", raw)
	}
}

func intPtr(v int) *int {
	return &v
}
