package dialect

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	analysis "github.com/akuru-app/akuru/internal/analysis/dialect"
	"github.com/akuru-app/akuru/internal/store"
)

// Service answers dialect vocabulary questions straight from the word
// table, bypassing the language model.
type Service struct {
	repo store.Repository
}

// NewService wires the dialect lookup to its repository.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// TryAnswer returns a canned bilingual answer when the message is a dialect
// vocabulary question with a known term. ok is false when the message
// should go to the model instead.
func (s *Service) TryAnswer(ctx context.Context, content string) (answer string, ok bool) {
	if !analysis.IsDialectQuery(content) {
		return "", false
	}

	term, found := analysis.ExtractTerm(content)
	if !found {
		return "", false
	}

	entry, err := s.repo.LookupDialect(ctx, term)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("term", term).Msg("dialect lookup failed")
		}
		return "", false
	}

	answer = fmt.Sprintf(
		"Here is %q across the Dhivehi dialects:\n"+
			"- Malé: %s\n- Huvadhoo: %s\n- Addu: %s\n\n"+
			"އެކި ބަހުރުވަތަކުގައި '%s' ކިޔާގޮތް މަތީގައި އެވަނީއެވެ.",
		entry.English, entry.Male, entry.Huvadhoo, entry.Addu, entry.Male,
	)
	return answer, true
}
