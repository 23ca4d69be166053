package scoring

import (
	"fmt"

	"github.com/surendar1863/student-edge-program/internal/models"
)

type LikertMode string

const (
	// LikertMarked scores likert questions by the evaluator's mark.
	LikertMarked LikertMode = "marked"
	// LikertRawAverage reports the mean raw rating of a section instead,
	// for summaries taken before grading.
	LikertRawAverage LikertMode = "raw_average"
)

const (
	defaultCap      = 1.0
	DefaultShortCap = 1.0
	ExportShortCap  = 10.0
)

type Options struct {
	ShortCap   float64    `toml:"short_cap"`
	LikertMode LikertMode `toml:"likert_mode"`
}

func DefaultOptions() Options {
	return Options{ShortCap: DefaultShortCap, LikertMode: LikertMarked}
}

func (o Options) normalized() Options {
	if o.ShortCap <= 0 {
		o.ShortCap = DefaultShortCap
	}
	if o.LikertMode == "" {
		o.LikertMode = LikertMarked
	}
	return o
}

func (o Options) Validate() error {
	switch o.LikertMode {
	case "", LikertMarked, LikertRawAverage:
	default:
		return fmt.Errorf("unknown likert mode %q", o.LikertMode)
	}
	if o.ShortCap < 0 {
		return fmt.Errorf("short cap must not be negative, got %v", o.ShortCap)
	}
	return nil
}

// Cap is the largest mark a question can contribute.
// A cap set in the question bank wins over the type default.
func (o Options) Cap(q models.Question) float64 {
	o = o.normalized()
	switch q.Body.(type) {
	case models.Info:
		return 0
	case models.MCQ, models.Likert:
		if q.MaxMarks > 0 {
			return q.MaxMarks
		}
		return defaultCap
	case models.Short:
		if q.MaxMarks > 0 {
			return q.MaxMarks
		}
		return o.ShortCap
	default:
		panic(fmt.Sprintf("unhandled question body %T", q.Body))
	}
}

type contribution struct {
	counted  bool
	score    float64
	capacity float64
	// rating is set for likert entries summarized by raw average
	rating *int
}

func (o Options) contribute(e Entry) contribution {
	o = o.normalized()
	switch body := e.Question.Body.(type) {
	case models.Info:
		return contribution{}
	case models.MCQ, models.Short:
		return o.marked(e)
	case models.Likert:
		if o.LikertMode == LikertRawAverage {
			if e.Answer == nil {
				return contribution{}
			}
			r := e.Answer.Rating
			return contribution{rating: &r}
		}
		return o.marked(e)
	default:
		panic(fmt.Sprintf("unhandled question body %T", body))
	}
}

func (o Options) marked(e Entry) contribution {
	limit := o.Cap(e.Question)
	return contribution{
		counted:  true,
		score:    clamp(e.Mark, 0, limit),
		capacity: limit,
	}
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
