// Package content loads the authoritative question definitions shipped with
// a release.
package content

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
)

//go:embed seed.yaml
var seedYAML []byte

// Definition is one question as written in a content file.
type Definition struct {
	ID            string   `yaml:"id"`
	Text          string   `yaml:"text"`
	Topic         string   `yaml:"topic"`
	Options       []string `yaml:"options"`
	Correct       int      `yaml:"correct"`
	Explanation   string   `yaml:"explanation,omitempty"`
	Difficulty    string   `yaml:"difficulty,omitempty"`
	Version       int      `yaml:"version,omitempty"`
	PublicContest string   `yaml:"contest"`
}

type file struct {
	Contest   string       `yaml:"contest"`
	Questions []Definition `yaml:"questions"`
}

// Source is a set of definitions read from YAML. It implements
// cache.ContentSource.
type Source struct {
	questions []domain.Question
}

// Decode parses a content document. Questions without an explicit contest
// inherit the document-level one.
func Decode(r io.Reader) (*Source, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	qs := make([]domain.Question, 0, len(f.Questions))
	for i, d := range f.Questions {
		if d.ID == "" {
			return nil, fmt.Errorf("content question %d: missing id", i)
		}
		if d.PublicContest == "" {
			d.PublicContest = f.Contest
		}
		qs = append(qs, d.toQuestion())
	}
	return &Source{questions: qs}, nil
}

// LoadFile reads definitions from path.
func LoadFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}

// Seed returns the definitions bundled into the binary.
func Seed() (*Source, error) {
	return Decode(bytes.NewReader(seedYAML))
}

// Definitions implements cache.ContentSource.
func (s *Source) Definitions(context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out, nil
}

func (d Definition) toQuestion() domain.Question {
	q := domain.Question{
		ID:                 d.ID,
		Text:               d.Text,
		Topic:              d.Topic,
		Options:            append([]string(nil), d.Options...),
		CorrectAnswerIndex: d.Correct,
		QuestionVersion:    d.Version,
		PublicContest:      d.PublicContest,
	}
	if q.QuestionVersion <= 0 {
		q.QuestionVersion = 1
	}
	if d.Explanation != "" {
		explanation := d.Explanation
		q.Explanation = &explanation
	}
	if d.Difficulty != "" {
		difficulty := d.Difficulty
		q.Difficulty = &difficulty
	}
	return q
}
