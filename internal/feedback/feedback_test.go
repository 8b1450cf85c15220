package feedback

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gfscout/internal/model"
	"github.com/sells-group/gfscout/internal/store"
)

type recorder struct {
	got []model.Feedback
	err error
}

func (r *recorder) InsertFeedback(_ context.Context, fb model.Feedback) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, fb)
	return nil
}

func TestSubmit_TrimsAndStores(t *testing.T) {
	rec := &recorder{}
	fb, err := NewService(rec).Submit(context.Background(), "  Please add Lyon bakeries \n")
	require.NoError(t, err)

	assert.Equal(t, "Please add Lyon bakeries", fb.Content)
	assert.NotEmpty(t, fb.ID)
	assert.False(t, fb.CreatedAt.IsZero())
	require.Len(t, rec.got, 1)
	assert.Equal(t, fb, rec.got[0])
}

func TestSubmit_Empty(t *testing.T) {
	rec := &recorder{}
	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := NewService(rec).Submit(context.Background(), in)
		assert.ErrorIs(t, err, ErrEmpty)
	}
	assert.Empty(t, rec.got)
}

func TestSubmit_Truncates(t *testing.T) {
	rec := &recorder{}
	long := strings.Repeat("é", MaxContentLength+10)

	fb, err := NewService(rec).Submit(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, MaxContentLength, utf8.RuneCountInString(fb.Content))
	assert.True(t, utf8.ValidString(fb.Content))
}

func TestSubmit_StoreError(t *testing.T) {
	_, err := NewService(&recorder{err: errors.New("disk full")}).Submit(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feedback: submit")
	assert.NotErrorIs(t, err, ErrEmpty)
}

func TestSubmit_SQLite(t *testing.T) {
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	_, err = NewService(st).Submit(context.Background(), "works end to end")
	assert.NoError(t, err)
}
