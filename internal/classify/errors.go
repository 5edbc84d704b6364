package classify

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoReferenceData marks classification attempted against an empty
	// reference corpus.
	ErrNoReferenceData = errors.New("no reference data")
	// ErrInvalidVector marks a feature vector whose length or contents
	// are unusable for the selected strategy.
	ErrInvalidVector = errors.New("invalid feature vector")
	// ErrNoSimilarity marks a well-formed vector with no positive overlap
	// against any reference, such as the extraction of a silent clip. It
	// is distinct from ErrInvalidVector: the vector itself is fine.
	ErrNoSimilarity = errors.New("no similarity to reference corpus")
	// ErrModelUnavailable marks a trained-model classification attempted
	// while the model artifact cannot be loaded.
	ErrModelUnavailable = errors.New("model unavailable")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later errors.Is checks. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrInvalidVector
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "classification failure"
	}
	return strings.Join(parts, ": ")
}
