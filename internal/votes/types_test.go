package votes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		previous  Value
		requested Value
		want      Transition
	}{
		{"first upvote", None, Up, Transition{OutcomeCreated, None, Up}},
		{"first downvote", None, Down, Transition{OutcomeCreated, None, Down}},
		{"repeat upvote retracts", Up, Up, Transition{OutcomeRetracted, Up, None}},
		{"repeat downvote retracts", Down, Down, Transition{OutcomeRetracted, Down, None}},
		{"up to down", Up, Down, Transition{OutcomeSwitched, Up, Down}},
		{"down to up", Down, Up, Transition{OutcomeSwitched, Down, Up}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.previous, tt.requested))
		})
	}
}

func TestTransitionDelta(t *testing.T) {
	tests := []struct {
		name     string
		previous Value
		request  Value
		up, down int
	}{
		{"created up", None, Up, 1, 0},
		{"created down", None, Down, 0, 1},
		{"retracted up", Up, Up, -1, 0},
		{"retracted down", Down, Down, 0, -1},
		{"switched to down", Up, Down, -1, 1},
		{"switched to up", Down, Up, 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, down := Decide(tt.previous, tt.request).Delta()
			assert.Equal(t, tt.up, up)
			assert.Equal(t, tt.down, down)
		})
	}
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("Posts")
	require.NoError(t, err)
	assert.Equal(t, KindPost, kind)

	kind, err = ParseKind("comment")
	require.NoError(t, err)
	assert.Equal(t, KindComment, kind)

	_, err = ParseKind("user")
	assert.ErrorIs(t, err, ErrInvalidVote)
}

func TestValueCastable(t *testing.T) {
	assert.True(t, Up.Castable())
	assert.True(t, Down.Castable())
	assert.False(t, None.Castable())
	assert.False(t, Value(2).Castable())
}

func TestReconciliationErrorMatching(t *testing.T) {
	cause := Transient(assert.AnError)
	err := error(&ReconciliationError{Entity: EntityRef{Kind: KindPost, ID: 7}, Attempts: 3, Err: cause})

	assert.ErrorIs(t, err, ErrReconciliationFailed)
	assert.ErrorIs(t, err, ErrTransientStorage)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "post/7")
	assert.Contains(t, err.Error(), "3 attempt(s)")
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrConflict))
	assert.True(t, Retryable(Transient(assert.AnError)))
	assert.False(t, Retryable(ErrNotFound))
	assert.False(t, Retryable(ErrInvalidVote))
	assert.Nil(t, Transient(nil))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyRecount, s)

	s, err = ParseStrategy("delta")
	require.NoError(t, err)
	assert.Equal(t, StrategyDelta, s)

	_, err = ParseStrategy("eventual")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name                        string
		actual, expected, requested Value
		write                       bool
		wantErr                     error
	}{
		{"fresh create", None, None, Up, true, nil},
		{"create already committed", Up, None, Up, false, nil},
		{"retract already committed", None, Down, Down, false, nil},
		{"switch already committed", Down, Up, Down, false, nil},
		{"stale expectation", Down, None, Up, false, ErrConflict},
		{"stale retraction", Up, Down, Down, false, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transition, write, err := Resolve(tt.actual, tt.expected, tt.requested)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.write, write)
			assert.Equal(t, Decide(tt.expected, tt.requested), transition)
		})
	}
}
