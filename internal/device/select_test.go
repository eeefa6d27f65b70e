package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name       string
	interfaces []string
	err        error
	calls      int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Enumerate(context.Context) ([]Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	records := make([]Record, 0, len(f.interfaces))
	for _, id := range f.interfaces {
		records = append(records, Record{Backend: f, Interface: id, Label: "dev " + id})
	}
	return records, nil
}

type recordingChooser struct {
	pick  int
	err   error
	asked []Record
}

func (c *recordingChooser) Choose(_ context.Context, records []Record) (int, error) {
	c.asked = records
	return c.pick, c.err
}

func scenario() (*fakeBackend, *fakeBackend) {
	return &fakeBackend{name: "B1", interfaces: []string{"a", "b"}},
		&fakeBackend{name: "B2", interfaces: []string{"c"}}
}

func TestSelectExplicitMatch(t *testing.T) {
	b1, b2 := scenario()
	rec, err := Select(context.Background(), []Backend{b1, b2}, Options{Interface: "c"})
	require.NoError(t, err)
	assert.Equal(t, "c", rec.Interface)
	assert.Equal(t, "B2", rec.BackendName())
}

func TestSelectExplicitNoMatch(t *testing.T) {
	b1, b2 := scenario()
	_, err := Select(context.Background(), []Backend{b1, b2}, Options{Interface: "z"})
	assert.ErrorIs(t, err, ErrNoMatchingDevice)
}

func TestSelectExplicitAmbiguous(t *testing.T) {
	b1 := &fakeBackend{name: "B1", interfaces: []string{"a"}}
	b2 := &fakeBackend{name: "B2", interfaces: []string{"a"}}
	_, err := Select(context.Background(), []Backend{b1, b2}, Options{Interface: "a"})
	assert.ErrorIs(t, err, ErrAmbiguousDevice)
}

func TestSelectPromptsWithAllCandidates(t *testing.T) {
	b1, b2 := scenario()
	chooser := &recordingChooser{pick: 1}

	rec, err := Select(context.Background(), []Backend{b1, b2}, Options{Chooser: chooser})
	require.NoError(t, err)
	assert.Equal(t, "b", rec.Interface)

	require.Len(t, chooser.asked, 3)
	assert.Equal(t, "a", chooser.asked[0].Interface)
	assert.Equal(t, "b", chooser.asked[1].Interface)
	assert.Equal(t, "c", chooser.asked[2].Interface)
}

func TestSelectAutoSelectsSingle(t *testing.T) {
	only := &fakeBackend{name: "B1", interfaces: []string{"hci0"}}
	chooser := &recordingChooser{pick: 5}

	rec, err := Select(context.Background(), []Backend{only}, Options{Chooser: chooser})
	require.NoError(t, err)
	assert.Equal(t, "hci0", rec.Interface)
	assert.Nil(t, chooser.asked, "a single candidate must not prompt")
}

func TestSelectNoDevices(t *testing.T) {
	empty := &fakeBackend{name: "B1"}
	_, err := Select(context.Background(), []Backend{empty}, Options{})
	assert.ErrorIs(t, err, ErrNoDevices)
}

func TestSelectWithoutChooser(t *testing.T) {
	b1, b2 := scenario()
	_, err := Select(context.Background(), []Backend{b1, b2}, Options{})
	assert.ErrorIs(t, err, ErrSelectionRequired)
}

func TestSelectInvalidChoice(t *testing.T) {
	b1, b2 := scenario()
	_, err := Select(context.Background(), []Backend{b1, b2}, Options{Chooser: &recordingChooser{pick: 3}})
	assert.ErrorIs(t, err, ErrInvalidChoice)
}

func TestSelectChooserError(t *testing.T) {
	b1, b2 := scenario()
	aborted := errors.New("user aborted")
	_, err := Select(context.Background(), []Backend{b1, b2}, Options{Chooser: &recordingChooser{err: aborted}})
	assert.ErrorIs(t, err, aborted)
}

func TestSelectSkipsFailingBackend(t *testing.T) {
	broken := &fakeBackend{name: "broken", err: errors.New("permission denied")}
	good := &fakeBackend{name: "good", interfaces: []string{"x"}}

	rec, err := Select(context.Background(), []Backend{broken, good}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "x", rec.Interface)
}

func TestSelectReplayBypassesEnumeration(t *testing.T) {
	b := &fakeBackend{name: "serial", interfaces: []string{"a", "b"}}
	rec, err := Select(context.Background(), []Backend{b}, Options{Replay: true, Interface: "a"})
	require.NoError(t, err)
	assert.Equal(t, ReplayInterface, rec.Interface)
	assert.Equal(t, "serial (replay)", rec.Label)
	assert.Same(t, b, rec.Backend)
	assert.Equal(t, 0, b.calls)
}

func TestSelectReplayNeedsOneBackend(t *testing.T) {
	b1, b2 := scenario()
	_, err := Select(context.Background(), []Backend{b1, b2}, Options{Replay: true})
	assert.ErrorIs(t, err, ErrReplayBackend)
}

func TestEnumerateDropsDuplicates(t *testing.T) {
	b := &fakeBackend{name: "B1", interfaces: []string{"a", "a", "b"}}
	records := Enumerate(context.Background(), []Backend{b}, nil)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1].Interface)
}

func TestRecordString(t *testing.T) {
	b := &fakeBackend{name: "serial"}
	assert.Equal(t, "/dev/ttyUSB0: CP2102 (serial)", Record{Backend: b, Interface: "/dev/ttyUSB0", Label: "CP2102"}.String())
	assert.Equal(t, "/dev/ttyUSB0 (serial)", Record{Backend: b, Interface: "/dev/ttyUSB0"}.String())
}

func TestChooserFunc(t *testing.T) {
	var c Chooser = ChooserFunc(func(context.Context, []Record) (int, error) { return 2, nil })
	idx, err := c.Choose(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestChooseOnPreEnumeratedCandidates(t *testing.T) {
	b1, b2 := scenario()
	candidates := Enumerate(context.Background(), []Backend{b1, b2}, nil)
	require.Len(t, candidates, 3)

	rec, err := Choose(context.Background(), candidates, Options{Interface: "b"})
	require.NoError(t, err)
	assert.Equal(t, "B1", rec.BackendName())
	assert.Equal(t, 1, b1.calls, "Choose does not enumerate again")

	_, err = Choose(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrNoDevices)
}
