package service

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
)

type generator struct {
	maxLength   int
	maxAttempts int
	useEpithet  bool
}

// NewGenerator creates a PseudonymGenerator.
//
// A candidate is chosen by SHA-256 over scope, the real identifier and the attempt
// number; consecutive 16-bit big-endian words of the digest index the modifier, noun
// and epithet vocabularies.
func NewGenerator(maxLength, maxAttempts int, useEpithet bool) PseudonymGenerator {
	return &generator{
		maxLength:   maxLength,
		maxAttempts: maxAttempts,
		useEpithet:  useEpithet,
	}
}

// Generate returns the candidate for attempt.
func (g *generator) Generate(realIdentifier, scope string, attempt int) (string, error) {
	if err := pseudonymDomain.ValidateRealIdentifier(realIdentifier, g.maxLength); err != nil {
		return "", err
	}
	if attempt < 0 {
		return "", fmt.Errorf("%w: negative attempt", pseudonymDomain.ErrValidation)
	}

	d := digest(realIdentifier, scope, uint32(attempt))

	modifier := modifiers[int(binary.BigEndian.Uint16(d[0:2]))%len(modifiers)]
	noun := nouns[int(binary.BigEndian.Uint16(d[2:4]))%len(nouns)]
	if !g.useEpithet {
		return modifier + " " + noun, nil
	}

	epithet := epithets[int(binary.BigEndian.Uint16(d[4:6]))%len(epithets)]
	return modifier + " " + noun + " the " + epithet, nil
}

// GenerateUnique tries attempts 0 through maxAttempts-1.
func (g *generator) GenerateUnique(
	realIdentifier, scope string,
	isTaken func(candidate string) (bool, error),
) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		candidate, err := g.Generate(realIdentifier, scope, attempt)
		if err != nil {
			return "", err
		}

		taken, err := isTaken(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", pseudonymDomain.ErrUniquenessConflict
}

func digest(realIdentifier, scope string, attempt uint32) [sha256.Size]byte {
	buf := make([]byte, 0, len(scope)+len(realIdentifier)+6)
	buf = append(buf, scope...)
	buf = append(buf, 0)
	buf = append(buf, realIdentifier...)
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint32(buf, attempt)
	return sha256.Sum256(buf)
}
