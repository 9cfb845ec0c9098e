package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rcarvalhopiaget/escutapiaget-sub000/core/question"
)

// seedQuestion is a question of a seed file. Option targets refer to other questions by Key.
type seedQuestion struct {
	Key                  string `yaml:"key"`
	question.NewQuestion `yaml:",inline"`
}

type seedDoc struct {
	Questions []seedQuestion `yaml:"questions"`
}

func decodeSeed(r io.Reader) ([]seedQuestion, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc seedDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding seed file")
	}

	keys := make(map[string]bool, len(doc.Questions))
	for i, sq := range doc.Questions {
		if sq.Key == "" {
			return nil, fmt.Errorf("question #%d: missing key", i+1)
		}
		if keys[sq.Key] {
			return nil, fmt.Errorf("question %q: duplicate key", sq.Key)
		}
		keys[sq.Key] = true
	}
	for _, sq := range doc.Questions {
		for _, opt := range sq.Options {
			for _, target := range opt.Targets() {
				if !keys[target] {
					return nil, fmt.Errorf("question %q: unknown target %q", sq.Key, target)
				}
			}
		}
	}
	return doc.Questions, nil
}

func (cli *commandLine) seedFile(ctx context.Context, path string, replace bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	questions, err := decodeSeed(f)
	if err != nil {
		return 0, err
	}
	return cli.seed(ctx, questions, replace)
}

// seed creates the questions without their links first, so every key gets an id,
// then sets the option targets.
func (cli *commandLine) seed(ctx context.Context, questions []seedQuestion, replace bool) (int, error) {
	if replace {
		if err := cli.clearCategories(ctx, questions); err != nil {
			return 0, err
		}
	}

	ids := make(map[string]string, len(questions))
	for _, sq := range questions {
		nq := sq.NewQuestion
		nq.Options = make([]question.Option, 0, len(sq.Options))
		for _, opt := range sq.Options {
			nq.Options = append(nq.Options, question.Option{Text: opt.Text})
		}
		q, err := cli.questionSvc.Create(ctx, nq)
		if err != nil {
			return 0, errors.Wrapf(err, "creating question %q", sq.Key)
		}
		ids[sq.Key] = q.ID
	}

	for _, sq := range questions {
		if !hasTargets(sq.Options) {
			continue
		}
		nq := sq.NewQuestion
		nq.Options = make([]question.Option, 0, len(sq.Options))
		for _, opt := range sq.Options {
			linked := question.Option{Text: opt.Text, NextQuestionID: ids[opt.NextQuestionID]}
			for _, key := range opt.NextQuestionsIDs {
				linked.NextQuestionsIDs = append(linked.NextQuestionsIDs, ids[key])
			}
			nq.Options = append(nq.Options, linked)
		}
		if _, err := cli.questionSvc.Update(ctx, ids[sq.Key], nq); err != nil {
			return 0, errors.Wrapf(err, "linking question %q", sq.Key)
		}
	}
	return len(questions), nil
}

func (cli *commandLine) clearCategories(ctx context.Context, questions []seedQuestion) error {
	seen := make(map[string]bool)
	for _, sq := range questions {
		category := sq.Category
		if seen[category] {
			continue
		}
		seen[category] = true

		existing, err := cli.questionSvc.QueryByCategory(ctx, category)
		if err != nil {
			return errors.Wrapf(err, "querying category %q", category)
		}
		for _, q := range existing {
			if err = cli.questionSvc.Delete(ctx, q.ID); err != nil {
				return errors.Wrapf(err, "deleting question %s", q.ID)
			}
		}
	}
	return nil
}

func hasTargets(opts []question.Option) bool {
	for _, opt := range opts {
		if len(opt.Targets()) > 0 {
			return true
		}
	}
	return false
}
