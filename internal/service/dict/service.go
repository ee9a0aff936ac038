package dict

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	analysis "github.com/akuru-app/akuru/internal/analysis/dict"
	"github.com/akuru-app/akuru/internal/store"
)

// maxSuggestions caps the did-you-mean list on a missed lookup.
const maxSuggestions = 5

// Service answers definition questions straight from the dictionary
// table, bypassing the language model.
type Service struct {
	repo store.Repository
}

// NewService wires the dictionary lookup to its repository.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// TryAnswer returns a dictionary answer when the message asks what a word
// means. ok is false when the message should go to the model instead. A
// missed lookup is still handled, with similar words suggested when the
// table has any.
func (s *Service) TryAnswer(ctx context.Context, content string) (answer string, ok bool) {
	if !analysis.IsDefinitionQuery(content) {
		return "", false
	}

	term, found := analysis.ExtractTerm(content)
	if !found {
		return "", false
	}

	entry, err := s.repo.LookupDefinition(ctx, term)
	if err == nil {
		return fmt.Sprintf("**%s**\n\n%s", entry.Word, entry.Definition), true
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Str("term", term).Msg("dictionary lookup failed")
		return "", false
	}

	similar, err := s.repo.SimilarWords(ctx, term, maxSuggestions)
	if err != nil {
		log.Warn().Err(err).Str("term", term).Msg("similar words lookup failed")
		similar = nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%q was not found in the dictionary.", term)
	if len(similar) > 0 {
		b.WriteString("\n\nDid you mean one of these words?\n")
		for _, word := range similar {
			fmt.Fprintf(&b, "- %s\n", word)
		}
	}
	return b.String(), true
}
