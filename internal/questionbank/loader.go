package questionbank

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/surendar1863/student-edge-program/internal/models"
)

const (
	defaultScaleMin = 1
	defaultScaleMax = 5
)

var legacyOptionColumns = []string{"A", "B", "C", "D"}

// Source describes where one section's questions live.
type Source struct {
	Section     string `toml:"section"`
	Path        string `toml:"path"`
	DefaultType string `toml:"default_type"`
}

type Bank struct {
	order    []string
	sections map[string]*models.Section
	missing  map[string]error
}

func New(sections ...*models.Section) *Bank {
	b := &Bank{
		sections: make(map[string]*models.Section),
		missing:  make(map[string]error),
	}
	for _, s := range sections {
		if b.known(s.Name) {
			continue
		}
		b.order = append(b.order, s.Name)
		b.sections[s.Name] = s
	}
	return b
}

// Load reads every source. A section that fails to load is remembered as
// missing and the remaining sections are still loaded.
func Load(sources []Source) *Bank {
	b := New()
	for _, src := range sources {
		if b.known(src.Section) {
			logger.Error.Printf("Section %q is configured twice, keeping the first", src.Section)
			continue
		}
		b.order = append(b.order, src.Section)

		section, err := loadFile(src)
		if err != nil {
			logger.Error.Printf("Failed to load question bank for section %q: %v", src.Section, err)
			b.missing[src.Section] = err
			continue
		}
		logger.Debug.Printf("Loaded %d questions for section %q", len(section.Questions), src.Section)
		b.sections[src.Section] = section
	}

	// marks are keyed by roll and question id only
	for _, id := range b.SharedQuestionIDs() {
		logger.Error.Printf("Question id %q appears in more than one section, its marks apply to all of them", id)
	}
	return b
}

// SharedQuestionIDs lists ids used by more than one loaded section.
func (b *Bank) SharedQuestionIDs() []string {
	count := make(map[string]int)
	var shared []string
	for _, s := range b.Sections() {
		for _, q := range s.Questions {
			count[q.ID]++
			if count[q.ID] == 2 {
				shared = append(shared, q.ID)
			}
		}
	}
	return shared
}

func (b *Bank) known(name string) bool {
	_, loaded := b.sections[name]
	_, failed := b.missing[name]
	return loaded || failed
}

func loadFile(src Source) (*models.Section, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defaultType := models.TypeMCQ
	if src.DefaultType != "" {
		defaultType, err = models.ParseQuestionType(src.DefaultType)
		if err != nil {
			return nil, err
		}
	}

	questions, err := LoadCSV(f, defaultType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", src.Path, err)
	}
	return &models.Section{Name: src.Section, Questions: questions}, nil
}

func (b *Bank) Section(name string) (*models.Section, error) {
	if s, ok := b.sections[name]; ok {
		return s, nil
	}
	if err, ok := b.missing[name]; ok {
		return nil, fmt.Errorf("%w: section %q: %v", models.ErrMissingQuestionBank, name, err)
	}
	return nil, fmt.Errorf("%w: section %q", models.ErrMissingQuestionBank, name)
}

// Sections returns the loaded sections in configuration order.
func (b *Bank) Sections() []*models.Section {
	out := make([]*models.Section, 0, len(b.sections))
	for _, name := range b.order {
		if s, ok := b.sections[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Question finds a question by id in any loaded section.
func (b *Bank) Question(id string) (models.Question, bool) {
	for _, s := range b.Sections() {
		if q, ok := s.Question(id); ok {
			return q, true
		}
	}
	return models.Question{}, false
}

type row struct {
	header map[string]int
	cells  []string
}

func (r row) get(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r row) has(col string) bool {
	_, ok := r.header[col]
	return ok
}

// LoadCSV parses one section. Both the current layout
// (QuestionID, Type, Option1..4, Correct, ScaleMin, ScaleMax) and the legacy
// one (No, A..D, Correct) are accepted. defaultType applies to rows without a
// Type column that carry no legacy options.
func LoadCSV(r io.Reader, defaultType models.QuestionType) ([]models.Question, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	head, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty question bank")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	header := make(map[string]int, len(head))
	for i, name := range head {
		header[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	if _, ok := header["Question"]; !ok {
		return nil, fmt.Errorf("missing Question column")
	}

	var questions []models.Question
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rw := row{header: header, cells: cells}
		if rw.get("Question") == "" {
			continue
		}

		q, err := parseRow(rw, defaultType, len(questions)+1)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("line %d: duplicate question id %q", line, q.ID)
		}
		seen[q.ID] = true
		questions = append(questions, q)
	}
	return questions, nil
}

func parseRow(rw row, defaultType models.QuestionType, position int) (models.Question, error) {
	q := models.Question{
		ID:   rw.get("QuestionID"),
		Text: rw.get("Question"),
	}
	if q.ID == "" {
		q.ID = rw.get("No")
	}
	if q.ID == "" {
		q.ID = fmt.Sprintf("Q%d", position)
	}

	if raw := rw.get("MaxMarks"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return q, fmt.Errorf("invalid MaxMarks %q", raw)
		}
		q.MaxMarks = v
	}

	qType := defaultType
	legacy := legacyOptions(rw)
	if raw := rw.get("Type"); raw != "" {
		t, err := models.ParseQuestionType(strings.ToLower(raw))
		if err != nil {
			return q, err
		}
		qType = t
	} else if len(legacy) > 0 {
		qType = models.TypeMCQ
	}

	switch qType {
	case models.TypeMCQ:
		body, err := parseMCQ(rw, legacy)
		if err != nil {
			return q, err
		}
		q.Body = body
	case models.TypeLikert:
		body, err := parseLikert(rw)
		if err != nil {
			return q, err
		}
		q.Body = body
	case models.TypeShort:
		q.Body = models.Short{}
	case models.TypeInfo:
		q.Body = models.Info{}
	}
	return q, nil
}

func legacyOptions(rw row) []string {
	var opts []string
	for _, col := range legacyOptionColumns {
		if v := rw.get(col); v != "" {
			opts = append(opts, v)
		}
	}
	return opts
}

func parseMCQ(rw row, legacy []string) (models.MCQ, error) {
	var opts []string
	for i := 1; rw.has(fmt.Sprintf("Option%d", i)); i++ {
		if v := rw.get(fmt.Sprintf("Option%d", i)); v != "" {
			opts = append(opts, v)
		}
	}
	letters := opts == nil
	if letters {
		opts = legacy
	}
	if len(opts) == 0 {
		return models.MCQ{}, fmt.Errorf("mcq question has no options")
	}

	correct := rw.get("Correct")
	if correct != "" && !(models.MCQ{Options: opts}).HasOption(correct) {
		// legacy sheets name the correct option by its letter
		idx := strings.Index("ABCD", strings.ToUpper(correct))
		if !letters || len(correct) != 1 || idx < 0 || rw.get(legacyOptionColumns[idx]) == "" {
			return models.MCQ{}, fmt.Errorf("correct answer %q is not one of the options", correct)
		}
		correct = rw.get(legacyOptionColumns[idx])
	}
	return models.MCQ{Options: opts, Correct: correct}, nil
}

func parseLikert(rw row) (models.Likert, error) {
	l := models.Likert{Min: defaultScaleMin, Max: defaultScaleMax}
	if raw := rw.get("ScaleMin"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return l, fmt.Errorf("invalid ScaleMin %q", raw)
		}
		l.Min = v
	}
	if raw := rw.get("ScaleMax"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return l, fmt.Errorf("invalid ScaleMax %q", raw)
		}
		l.Max = v
	}
	if l.Min > l.Max {
		return l, fmt.Errorf("scale min %d is above max %d", l.Min, l.Max)
	}
	return l, nil
}
