package store

import (
	"context"
	"strings"

	"github.com/promptvault/promptvault/internal/vault"
)

// Assemble produces the final prompt text for an entry: the entry's own
// variables merged with per-call overrides (overrides win), then every
// {name} placeholder substituted in both bodies. This is the authoritative
// substitution; clients never assemble locally.
func (s *Store) Assemble(ctx context.Context, entryID string, overrides map[string]string) (*vault.Assembled, error) {
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return AssembleEntry(entry, overrides), nil
}

// AssembleEntry substitutes variables into an already-loaded entry.
func AssembleEntry(entry *vault.Entry, overrides map[string]string) *vault.Assembled {
	vars := make(map[string]string, len(entry.Variables)+len(overrides))
	for k, v := range entry.Variables {
		vars[k] = v
	}
	for k, v := range overrides {
		vars[k] = v
	}

	out := &vault.Assembled{
		Positive: entry.Raw.Positive,
		Negative: entry.Raw.Negative,
	}
	for name, value := range vars {
		placeholder := "{" + name + "}"
		out.Positive = strings.ReplaceAll(out.Positive, placeholder, value)
		out.Negative = strings.ReplaceAll(out.Negative, placeholder, value)
	}
	return out
}
