package models

import "fmt"

type QuestionType string

const (
	TypeMCQ    QuestionType = "mcq"
	TypeLikert QuestionType = "likert"
	TypeShort  QuestionType = "short"
	TypeInfo   QuestionType = "info"
)

func ParseQuestionType(s string) (QuestionType, error) {
	switch t := QuestionType(s); t {
	case TypeMCQ, TypeLikert, TypeShort, TypeInfo:
		return t, nil
	default:
		return "", fmt.Errorf("unknown question type %q", s)
	}
}

// Body carries the type specific parameters of a question.
// The only implementations are MCQ, Likert, Short and Info.
type Body interface {
	Type() QuestionType
	sealed()
}

type MCQ struct {
	Options []string
	Correct string
}

type Likert struct {
	Min int
	Max int
}

type Short struct{}

// Info is a passage or an instruction. It is never answered nor graded.
type Info struct{}

func (MCQ) Type() QuestionType    { return TypeMCQ }
func (Likert) Type() QuestionType { return TypeLikert }
func (Short) Type() QuestionType  { return TypeShort }
func (Info) Type() QuestionType   { return TypeInfo }

func (MCQ) sealed()    {}
func (Likert) sealed() {}
func (Short) sealed()  {}
func (Info) sealed()   {}

func (m MCQ) HasOption(value string) bool {
	for _, opt := range m.Options {
		if opt == value {
			return true
		}
	}
	return false
}

type Question struct {
	ID   string
	Text string
	// MaxMarks caps the mark an evaluator may give. Zero means the type default.
	MaxMarks float64
	Body     Body
}

func (q Question) Type() QuestionType {
	return q.Body.Type()
}

func (q Question) Gradable() bool {
	_, info := q.Body.(Info)
	return !info
}

type Section struct {
	Name      string
	Questions []Question
}

func (s *Section) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

func (s *Section) Gradable() []Question {
	out := make([]Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		if q.Gradable() {
			out = append(out, q)
		}
	}
	return out
}

// AutoGradable reports whether every gradable question is an mcq with a
// correct option, so a raw score can be computed at submission time.
func (s *Section) AutoGradable() bool {
	gradable := s.Gradable()
	if len(gradable) == 0 {
		return false
	}
	for _, q := range gradable {
		mcq, ok := q.Body.(MCQ)
		if !ok || mcq.Correct == "" {
			return false
		}
	}
	return true
}
