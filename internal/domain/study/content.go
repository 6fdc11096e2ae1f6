package study

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidContent tags every structural content failure.
var ErrInvalidContent = errors.New("invalid session content")

// SessionContent is the question/answer payload of a review session.
// Decoding enforces len(Questions) == len(Answers) and, when hints are
// present, len(Hints) == len(Questions).
type SessionContent struct {
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`
	Hints     []string `json:"hints,omitempty"`
}

func (c SessionContent) Validate() error {
	if c.Questions == nil {
		return fmt.Errorf("%w: questions missing", ErrInvalidContent)
	}
	if c.Answers == nil {
		return fmt.Errorf("%w: answers missing", ErrInvalidContent)
	}
	if len(c.Questions) != len(c.Answers) {
		return fmt.Errorf("%w: %d questions but %d answers", ErrInvalidContent, len(c.Questions), len(c.Answers))
	}
	if len(c.Hints) > 0 && len(c.Hints) != len(c.Questions) {
		return fmt.Errorf("%w: %d hints for %d questions", ErrInvalidContent, len(c.Hints), len(c.Questions))
	}
	return nil
}

type rawContent SessionContent

func (c *SessionContent) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: not a JSON object", ErrInvalidContent)
	}
	var rc rawContent
	if err := json.Unmarshal(trimmed, &rc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	out := SessionContent(rc)
	if err := out.Validate(); err != nil {
		return err
	}
	*c = out
	return nil
}

// MarshalJSON drops an empty hints list so stored blobs stay minimal.
func (c SessionContent) MarshalJSON() ([]byte, error) {
	rc := rawContent(c)
	if len(rc.Hints) == 0 {
		rc.Hints = nil
	}
	if rc.Questions == nil {
		rc.Questions = []string{}
	}
	if rc.Answers == nil {
		rc.Answers = []string{}
	}
	return json.Marshal(rc)
}

// ParseContent decodes and validates a stored content blob.
func ParseContent(raw []byte) (SessionContent, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return SessionContent{}, fmt.Errorf("%w: empty", ErrInvalidContent)
	}
	var c SessionContent
	if err := json.Unmarshal(raw, &c); err != nil {
		if errors.Is(err, ErrInvalidContent) {
			return SessionContent{}, err
		}
		return SessionContent{}, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return c, nil
}

// EditMetadata flags AI-generated content that a user changed afterwards.
type EditMetadata struct {
	Edited   bool       `json:"edited"`
	EditedAt *time.Time `json:"editedAt,omitempty"`
}
