package draft

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

type fakeMirror struct {
	draft *model.AttemptDraft
	err   error
	calls int
}

func (f *fakeMirror) Get(_ context.Context, _, _ uuid.UUID) (*model.AttemptDraft, error) {
	f.calls++
	return f.draft, f.err
}

func intPtr(v int) *int { return &v }

func sampleDraft() *model.AttemptDraft {
	return &model.AttemptDraft{
		Version:     model.DraftVersion,
		Index:       2,
		SecondsLeft: 840,
		Answers:     map[string]*int{uuid.New().String(): intPtr(1)},
		Marked:      map[string]bool{},
		TimeSpent:   map[string]int{},
	}
}

func TestDecodeDraftRoundTrip(t *testing.T) {
	want := sampleDraft()
	data, err := json.Marshal(want)
	assert.NoError(t, err)

	got, err := decodeDraft(data)
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeDraftCorruptJSON(t *testing.T) {
	got, err := decodeDraft([]byte(`{"v":1,"idx":`))
	assert.Error(t, err)
	assert.Nil(t, got)

	got, err = decodeDraft([]byte(`not json at all`))
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestDecodeDraftVersionMismatch(t *testing.T) {
	stale := sampleDraft()
	stale.Version = model.DraftVersion + 1
	data, err := json.Marshal(stale)
	assert.NoError(t, err)

	got, err := decodeDraft(data)
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestLoadMirrorReturnsDurableCopy(t *testing.T) {
	want := sampleDraft()
	mirror := &fakeMirror{draft: want}
	s := &Store{mirror: mirror, log: zerolog.Nop()}

	got := s.loadMirror(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, want, got)
	assert.Equal(t, 1, mirror.calls)
}

func TestLoadMirrorMissing(t *testing.T) {
	s := &Store{mirror: &fakeMirror{}, log: zerolog.Nop()}

	assert.Nil(t, s.loadMirror(context.Background(), uuid.New(), uuid.New()))
}

func TestLoadMirrorFailureDegradesToFresh(t *testing.T) {
	s := &Store{mirror: &fakeMirror{err: errors.New("db down")}, log: zerolog.Nop()}

	assert.Nil(t, s.loadMirror(context.Background(), uuid.New(), uuid.New()))
}

func TestLoadMirrorVersionMismatch(t *testing.T) {
	stale := sampleDraft()
	stale.Version = model.DraftVersion + 1
	s := &Store{mirror: &fakeMirror{draft: stale}, log: zerolog.Nop()}

	assert.Nil(t, s.loadMirror(context.Background(), uuid.New(), uuid.New()))
}
