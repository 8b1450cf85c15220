// Package feedback accepts free-text user feedback and persists it.
package feedback

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gfscout/internal/model"
)

// MaxContentLength caps stored feedback, in characters.
const MaxContentLength = 5000

// ErrEmpty is returned for blank feedback.
var ErrEmpty = eris.New("content is required")

// Writer persists feedback.
type Writer interface {
	InsertFeedback(ctx context.Context, fb model.Feedback) error
}

// Service validates and stores feedback.
type Service struct {
	w   Writer
	now func() time.Time
}

// NewService creates a Service backed by w.
func NewService(w Writer) *Service {
	return &Service{w: w, now: time.Now}
}

// Submit trims and truncates content, then stores it. The stored entry is
// returned.
func (s *Service) Submit(ctx context.Context, content string) (model.Feedback, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Feedback{}, ErrEmpty
	}
	content = truncate(content, MaxContentLength)

	fb := model.Feedback{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.w.InsertFeedback(ctx, fb); err != nil {
		return model.Feedback{}, eris.Wrap(err, "feedback: submit")
	}
	return fb, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
