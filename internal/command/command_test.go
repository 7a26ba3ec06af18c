package command

import (
	"errors"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type posted struct {
	command   string
	arguments any
}

type emitted struct {
	event string
	body  any
}

type output struct {
	category string
	text     string
}

type fakeSession struct {
	posts   []posted
	events  []emitted
	outputs []output
	postErr error
}

func (s *fakeSession) Post(command string, arguments any) error {
	s.posts = append(s.posts, posted{command, arguments})
	return s.postErr
}

func (s *fakeSession) Emit(event string, body any) error {
	s.events = append(s.events, emitted{event, body})
	return nil
}

func (s *fakeSession) Output(category, text string) {
	s.outputs = append(s.outputs, output{category, text})
}

func newTestRegistry(t *testing.T) (*Registry, *fakeSession) {
	s := &fakeSession{}
	return NewRegistry(func() Session { return s }, zaptest.NewLogger(t).Sugar()), s
}

func TestBuiltinsRegistered(t *testing.T) {
	r, _ := newTestRegistry(t)
	assert.Equal(t, []string{NameContinue, NamePause, NameRequest, NameOutput}, r.List())
}

func TestPauseDefaultsToStoppedThread(t *testing.T) {
	r, s := newTestRegistry(t)

	require.NoError(t, r.Dispatch(Call{Name: NamePause, ThreadID: 3}))
	require.NoError(t, r.Dispatch(Call{Name: NamePause, Args: []any{int64(9)}, ThreadID: 3}))

	assert.Equal(t, []posted{
		{"pause", dap.PauseArguments{ThreadId: 3}},
		{"pause", dap.PauseArguments{ThreadId: 9}},
	}, s.posts)
}

func TestContinue(t *testing.T) {
	r, s := newTestRegistry(t)

	require.NoError(t, r.Dispatch(Call{Name: NameContinue, ThreadID: 1}))
	assert.Equal(t, []posted{{"continue", dap.ContinueArguments{ThreadId: 1}}}, s.posts)

	err := r.Dispatch(Call{Name: NameContinue, Args: []any{"main"}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRequest(t *testing.T) {
	r, s := newTestRegistry(t)

	args := map[string]any{"threadId": int64(1)}
	require.NoError(t, r.Dispatch(Call{Name: NameRequest, Args: []any{"next", args}}))
	require.NoError(t, r.Dispatch(Call{Name: NameRequest, Args: []any{"threads"}}))
	assert.Equal(t, []posted{{"next", args}, {"threads", nil}}, s.posts)

	assert.ErrorIs(t, r.Dispatch(Call{Name: NameRequest}), ErrInvalidArgument)
	assert.ErrorIs(t, r.Dispatch(Call{Name: NameRequest, Args: []any{int64(1)}}), ErrInvalidArgument)
}

func TestRequestPostError(t *testing.T) {
	r, s := newTestRegistry(t)
	s.postErr = errors.New("closed")

	assert.EqualError(t, r.Dispatch(Call{Name: NameRequest, Args: []any{"threads"}}), "closed")
}

func TestOutputAppend(t *testing.T) {
	r, s := newTestRegistry(t)

	require.NoError(t, r.Dispatch(Call{Name: NameOutput, Args: []any{"hello"}}))
	require.NoError(t, r.Dispatch(Call{Name: NameOutput, Args: []any{int64(5), "important"}}))
	assert.Equal(t, []output{{"console", "hello"}, {"important", "5"}}, s.outputs)

	assert.ErrorIs(t, r.Dispatch(Call{Name: NameOutput}), ErrInvalidArgument)
}

func TestUnknownCommandForwarded(t *testing.T) {
	r, s := newTestRegistry(t)

	require.NoError(t, r.Dispatch(Call{Name: "ext.highlight", Args: []any{"a", int64(1)}}))
	require.NoError(t, r.Dispatch(Call{Name: "ext.refresh"}))

	require.Len(t, s.events, 2)
	assert.Equal(t, EventScriptpointCommand, s.events[0].event)
	assert.Equal(t, ForwardedCommand{Command: "ext.highlight", Arguments: []any{"a", int64(1)}}, s.events[0].body)
	assert.Equal(t, ForwardedCommand{Command: "ext.refresh", Arguments: []any{}}, s.events[1].body)
	assert.Empty(t, s.posts)
}

func TestRegisterOverridesAndUnregister(t *testing.T) {
	r, s := newTestRegistry(t)

	var got []Call
	r.Register("ext.custom", func(_ Session, call Call) error {
		got = append(got, call)
		return nil
	})
	assert.True(t, r.Has("ext.custom"))

	require.NoError(t, r.Dispatch(Call{Name: "ext.custom", Args: []any{true}}))
	require.Len(t, got, 1)
	assert.Empty(t, s.events)

	r.Unregister("ext.custom")
	assert.False(t, r.Has("ext.custom"))
	require.NoError(t, r.Dispatch(Call{Name: "ext.custom"}))
	assert.Len(t, s.events, 1)
}

func TestHandlerPanic(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("boom", func(Session, Call) error { panic("bad") })

	err := r.Dispatch(Call{Name: "boom"})
	assert.ErrorIs(t, err, ErrPanic)
}

func TestNoSession(t *testing.T) {
	r := NewRegistry(func() Session { return nil }, nil)
	assert.ErrorIs(t, r.Dispatch(Call{Name: NamePause}), ErrNoSession)

	r = NewRegistry(nil, nil)
	assert.ErrorIs(t, r.Dispatch(Call{Name: NamePause}), ErrNoSession)
}

func TestInvalidName(t *testing.T) {
	r, _ := newTestRegistry(t)
	assert.ErrorIs(t, r.Dispatch(Call{}), ErrInvalidName)
}
