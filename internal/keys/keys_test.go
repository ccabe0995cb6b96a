package keys

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/airbot/internal/dispatch"
)

func TestParseChord(t *testing.T) {
	tests := []struct {
		in      string
		want    Chord
		wantErr bool
	}{
		{in: "k", want: Chord{Key: "k"}},
		{in: " Up ", want: Chord{Key: "up"}},
		{in: "shift+n", want: Chord{Key: "n", Modifiers: []string{"shift"}}},
		{in: "Control+Option+p", want: Chord{Key: "p", Modifiers: []string{"ctrl", "alt"}}},
		{in: "command+space", want: Chord{Key: "space", Modifiers: []string{"cmd"}}},
		{in: "", wantErr: true},
		{in: "shift+", wantErr: true},
		{in: "hyper+k", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChord(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidChord)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseChord(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
			back, err := ParseChord(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, back)
		})
	}
}

func TestChord_Validate(t *testing.T) {
	c := Chord{Key: " N ", Modifiers: []string{"Shift", "option"}}
	require.NoError(t, c.Validate())
	assert.Equal(t, Chord{Key: "n", Modifiers: []string{"shift", "alt"}}, c)

	bad := Chord{Key: "shift+n"}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidChord)

	bad = Chord{Key: "n", Modifiers: []string{"fn"}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidChord)
}

func TestDefaultKeymap(t *testing.T) {
	km := DefaultKeymap()

	want := map[dispatch.Action]string{
		dispatch.ActionTogglePlay: "k",
		dispatch.ActionVolumeUp:   "up",
		dispatch.ActionVolumeDown: "down",
		dispatch.ActionNext:       "shift+n",
		dispatch.ActionPrevious:   "shift+p",
	}
	for _, a := range dispatch.Actions {
		c, ok := km.Lookup(a)
		require.True(t, ok, "no binding for %s", a)
		assert.Equal(t, want[a], c.String(), "binding for %s", a)
	}
}

func TestKeymap_SetAndRestore(t *testing.T) {
	km := DefaultKeymap()

	require.NoError(t, km.Set(dispatch.ActionTogglePlay, Chord{Key: "Space"}))
	c, _ := km.Lookup(dispatch.ActionTogglePlay)
	assert.Equal(t, "space", c.String())

	assert.ErrorIs(t, km.Set("rewind", Chord{Key: "j"}), dispatch.ErrUnknownAction)
	assert.ErrorIs(t, km.Set(dispatch.ActionNext, Chord{}), ErrInvalidChord)

	restored, err := km.Restore(dispatch.ActionTogglePlay)
	require.NoError(t, err)
	assert.Equal(t, "k", restored.String())

	// Mutating a returned chord must not leak into the keymap.
	next, _ := km.Lookup(dispatch.ActionNext)
	next.Modifiers[0] = "cmd"
	again, _ := km.Lookup(dispatch.ActionNext)
	assert.Equal(t, "shift+n", again.String())
	assert.Equal(t, "shift+n", DefaultChords[dispatch.ActionNext].String())
}

// recordingInjector logs every call and can fail selected ones.
type recordingInjector struct {
	calls  []string
	failOn string
}

func (r *recordingInjector) do(call string) error {
	r.calls = append(r.calls, call)
	if call == r.failOn {
		return errors.New("injector failed")
	}
	return nil
}

func (r *recordingInjector) PressAndRelease(_ context.Context, c Chord) error {
	return r.do("tap " + c.String())
}

func (r *recordingInjector) Press(_ context.Context, key string) error {
	return r.do("down " + key)
}

func (r *recordingInjector) Release(_ context.Context, key string) error {
	return r.do("up " + key)
}

func TestEmitter_Emit(t *testing.T) {
	km := DefaultKeymap()
	require.NoError(t, km.Set(dispatch.ActionPrevious, MustParseChord("ctrl+shift+p")))

	tests := []struct {
		name   string
		action dispatch.Action
		failOn string
		want   []string
		errIs  error
	}{
		{
			name:   "plain key",
			action: dispatch.ActionTogglePlay,
			want:   []string{"tap k"},
		},
		{
			name:   "shifted key",
			action: dispatch.ActionNext,
			want:   []string{"down shift", "tap n", "up shift"},
		},
		{
			name:   "two modifiers released in reverse",
			action: dispatch.ActionPrevious,
			want:   []string{"down ctrl", "down shift", "tap p", "up shift", "up ctrl"},
		},
		{
			name:   "tap failure still releases",
			action: dispatch.ActionNext,
			failOn: "tap n",
			want:   []string{"down shift", "tap n", "up shift"},
		},
		{
			name:   "modifier failure releases what was pressed",
			action: dispatch.ActionPrevious,
			failOn: "down shift",
			want:   []string{"down ctrl", "down shift", "up ctrl"},
		},
		{
			name:   "unbound action",
			action: "rewind",
			want:   nil,
			errIs:  ErrUnboundAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inj := &recordingInjector{failOn: tt.failOn}
			err := NewEmitter(km, inj).Emit(context.Background(), tt.action)

			switch {
			case tt.errIs != nil:
				assert.ErrorIs(t, err, tt.errIs)
			case tt.failOn != "":
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
			if diff := cmp.Diff(tt.want, inj.calls); diff != "" {
				t.Errorf("injector calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmitter_ReleasesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inj := &cancellingInjector{cancel: cancel}

	_ = NewEmitter(DefaultKeymap(), inj).Emit(ctx, dispatch.ActionNext)

	assert.True(t, inj.releasedLive, "release must run with a live context")
}

// cancellingInjector cancels the context on the tap and records whether
// the following release saw a cancelled context.
type cancellingInjector struct {
	cancel       context.CancelFunc
	releasedLive bool
}

func (c *cancellingInjector) PressAndRelease(context.Context, Chord) error {
	c.cancel()
	return nil
}

func (c *cancellingInjector) Press(context.Context, string) error { return nil }

func (c *cancellingInjector) Release(ctx context.Context, _ string) error {
	c.releasedLive = ctx.Err() == nil
	return nil
}

func TestDryRunInjector(t *testing.T) {
	inj := NewDryRunInjector()
	emitter := NewEmitter(DefaultKeymap(), inj)

	require.NoError(t, emitter.Emit(context.Background(), dispatch.ActionVolumeUp))
	require.NoError(t, emitter.Emit(context.Background(), dispatch.ActionNext))

	assert.Equal(t, []string{"tap up", "down shift", "tap n", "up shift"}, inj.Events())

	for i := 0; i < dryRunHistory+5; i++ {
		_ = inj.PressAndRelease(context.Background(), Chord{Key: "k"})
	}
	assert.Len(t, inj.Events(), dryRunHistory)
}

func TestEmitter_ImplementsDispatchEmitter(t *testing.T) {
	var _ dispatch.Emitter = NewEmitter(DefaultKeymap(), NewDryRunInjector())
}
