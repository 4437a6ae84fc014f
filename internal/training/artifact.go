package training

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
)

// WriteVocabulary persists the frozen vocabulary and column order as JSON.
func WriteVocabulary(path string, vocab *domain.Vocabulary) error {
	data, err := json.MarshalIndent(vocab, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vocabulary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write vocabulary: %w", err)
	}
	return nil
}

// ReadVocabulary loads a vocabulary written by WriteVocabulary.
func ReadVocabulary(path string) (*domain.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	vocab := new(domain.Vocabulary)
	if err := json.Unmarshal(data, vocab); err != nil {
		return nil, err
	}
	return vocab, nil
}
