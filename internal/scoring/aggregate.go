package scoring

import (
	"fmt"
	"strconv"
)

type SectionTotal struct {
	Section string  `json:"section"`
	Score   float64 `json:"score"`
	// Max is the number of gradable questions counted in Score.
	Max int `json:"max"`
	// Capacity is the sum of the per-question caps.
	Capacity float64 `json:"capacity"`
	Ungraded int     `json:"ungraded"`
	// LikertAverage is only set when likert questions are summarized by
	// their raw ratings.
	LikertAverage *float64 `json:"likert_average,omitempty"`
}

func (t SectionTotal) String() string {
	return fmt.Sprintf("%s/%d", formatScore(t.Score), t.Max)
}

type Report struct {
	Roll          string         `json:"roll"`
	Name          string         `json:"name"`
	Sections      []SectionTotal `json:"sections"`
	GrandTotal    float64        `json:"grand_total"`
	GrandMax      int            `json:"grand_max"`
	GrandCapacity float64        `json:"grand_capacity"`
	Ungraded      int            `json:"ungraded"`
}

// String renders the grand total together with its denominator.
func (r Report) String() string {
	return fmt.Sprintf("%s/%d", formatScore(r.GrandTotal), r.GrandMax)
}

func (r Report) Section(name string) (SectionTotal, bool) {
	for _, s := range r.Sections {
		if s.Section == name {
			return s, true
		}
	}
	return SectionTotal{}, false
}

// Aggregate folds evaluation views into section and grand totals. Sections
// keep the order of views; views of the same section are folded together.
func Aggregate(opts Options, views ...*View) Report {
	var report Report
	index := make(map[string]int)
	ratings := make(map[string][]int)

	for _, v := range views {
		if v == nil {
			continue
		}
		if report.Roll == "" {
			report.Roll = v.Roll
			report.Name = v.Name
		}

		i, ok := index[v.Section]
		if !ok {
			i = len(report.Sections)
			index[v.Section] = i
			report.Sections = append(report.Sections, SectionTotal{Section: v.Section})
		}
		total := &report.Sections[i]

		for _, e := range v.Entries {
			c := opts.contribute(e)
			if c.rating != nil {
				ratings[v.Section] = append(ratings[v.Section], *c.rating)
			}
			if !c.counted {
				continue
			}
			total.Score += c.score
			total.Max++
			total.Capacity += c.capacity
			if !e.Graded {
				total.Ungraded++
			}
		}
	}

	for i := range report.Sections {
		s := &report.Sections[i]
		if rs := ratings[s.Section]; len(rs) > 0 {
			avg := mean(rs)
			s.LikertAverage = &avg
		}
		report.GrandTotal += s.Score
		report.GrandMax += s.Max
		report.GrandCapacity += s.Capacity
		report.Ungraded += s.Ungraded
	}
	return report
}

// Summarize aggregates a single view.
func Summarize(opts Options, view *View) SectionTotal {
	r := Aggregate(opts, view)
	if len(r.Sections) == 0 {
		return SectionTotal{}
	}
	return r.Sections[0]
}

func mean(values []int) float64 {
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
