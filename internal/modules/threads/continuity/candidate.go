package continuity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/platform/textutil"
)

var (
	// ErrMalformedCandidate marks a single candidate as unusable; the rest of the batch proceeds.
	ErrMalformedCandidate = errors.New("continuity: malformed candidate")
	// ErrPersistenceConflict means a concurrent writer won a race; the caller should retry.
	ErrPersistenceConflict = errors.New("continuity: persistence conflict")
)

// Candidate is one concept extracted from a lecture artifact.
type Candidate struct {
	ArtifactID    string        `json:"artifact_id,omitempty"`
	Title         string        `json:"title,omitempty"`
	Summary       string        `json:"summary,omitempty"`
	Evidence      string        `json:"evidence"`
	DominantFacet threads.Facet `json:"dominant_facet,omitempty"`
	Confidence    float64       `json:"confidence,omitempty"`
}

// prepared is a validated candidate with derived text features.
type prepared struct {
	Candidate
	Key     string
	Terms   []string
	Profile Profile
}

func prepare(c Candidate, fallbackFacet threads.Facet) (prepared, error) {
	c.Title = strings.TrimSpace(c.Title)
	c.Summary = textutil.CleanEvidence(c.Summary)
	c.Evidence = textutil.CleanEvidence(c.Evidence)
	c.ArtifactID = strings.TrimSpace(c.ArtifactID)

	if c.Evidence == "" {
		return prepared{}, fmt.Errorf("%w: missing evidence text", ErrMalformedCandidate)
	}
	terms := textutil.Terms(c.Evidence)
	if len(terms) == 0 {
		return prepared{}, fmt.Errorf("%w: evidence has no usable terms", ErrMalformedCandidate)
	}
	if c.DominantFacet == "" {
		c.DominantFacet = fallbackFacet
	}
	if f, err := threads.ParseFacet(string(c.DominantFacet)); err == nil {
		c.DominantFacet = f
	} else {
		return prepared{}, fmt.Errorf("%w: %v", ErrMalformedCandidate, err)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return prepared{}, fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedCandidate, c.Confidence)
	}

	key := candidateKey(c.Summary, c.Evidence)
	if c.ArtifactID == "" {
		c.ArtifactID = key
	}
	return prepared{
		Candidate: c,
		Key:       key,
		Terms:     terms,
		Profile:   candidateProfile(c, terms),
	}, nil
}

func candidateKey(summary, evidence string) string {
	sum := sha256.Sum256([]byte(textutil.Fold(summary) + "\x1f" + textutil.Fold(evidence)))
	return hex.EncodeToString(sum[:16])
}

// displayTitle picks the thread title for a new thread.
func (p prepared) displayTitle() string {
	for _, raw := range []string{p.Title, p.Summary, p.Evidence} {
		if t := textutil.DisplayTitle(raw, 8); t != "" {
			return t
		}
	}
	return "Untitled Thread"
}

// summaryText is the text a new thread starts with.
func (p prepared) summaryText() string {
	if p.Summary != "" {
		return p.Summary
	}
	return p.Evidence
}
