package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/hcishell/internal/session"
)

type nop struct{ Base }

func (*nop) Execute(context.Context) (bool, error) { return true, nil }

func spec(words ...string) Spec {
	return Spec{
		Keywords:    words,
		Description: words[0],
		New:         func(string, *session.Session) Command { return &nop{} },
	}
}

func TestRegistryLookupExactCaseSensitive(t *testing.T) {
	r, err := NewRegistry(spec("readmem", "hexdump"), spec("exit", "quit"))
	require.NoError(t, err)

	s, ok := r.Lookup("hexdump")
	require.True(t, ok)
	assert.Equal(t, "readmem", s.Description)

	for _, word := range []string{"READMEM", "readme", "readmem ", "Exit"} {
		_, ok := r.Lookup(word)
		assert.False(t, ok, word)
	}
}

func TestRegistryKeywordsSorted(t *testing.T) {
	r, err := NewRegistry(spec("sections", "memmap"), spec("exit", "quit"), spec("help", "?"))
	require.NoError(t, err)
	assert.Equal(t, []string{"?", "exit", "help", "memmap", "quit", "sections"}, r.Keywords())

	// the returned slice is a copy
	kw := r.Keywords()
	kw[0] = "zzz"
	assert.Equal(t, "?", r.Keywords()[0])
}

func TestRegistryComplete(t *testing.T) {
	r, err := NewRegistry(spec("readmem"), spec("reset"), spec("script"), spec("send"))
	require.NoError(t, err)

	assert.Equal(t, []string{"readmem", "reset"}, r.Complete("re"))
	assert.Equal(t, []string{"script", "send"}, r.Complete("s"))
	assert.Empty(t, r.Complete("x"))
	assert.Len(t, r.Complete(""), 4)
}

func TestRegistryDuplicateKeyword(t *testing.T) {
	_, err := NewRegistry(spec("exit", "quit"), spec("quit"))
	var dup *DuplicateKeywordError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "quit", dup.Keyword)

	_, err = NewRegistry(spec("send", "send"))
	assert.ErrorAs(t, err, &dup)
}

func TestRegistryInvalidSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"no keywords", Spec{New: spec("x").New}},
		{"empty keyword", Spec{Keywords: []string{""}, New: spec("x").New}},
		{"keyword with space", Spec{Keywords: []string{"read mem"}, New: spec("x").New}},
		{"no factory", Spec{Keywords: []string{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.spec)
			assert.True(t, errors.Is(err, ErrInvalidSpec), "got %v", err)
		})
	}
}

func TestBaseAbort(t *testing.T) {
	var b Base
	assert.False(t, b.IsAborted())

	done := make(chan struct{})
	go func() {
		<-b.Aborted()
		close(done)
	}()

	b.Abort()
	b.Abort()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Aborted channel not closed")
	}
	assert.True(t, b.IsAborted())
}
