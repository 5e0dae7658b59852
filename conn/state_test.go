package conn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	for _, state := range []State{Unset, Set, SetFile, SetChunked} {
		require.True(t, state.Unsent(), state.String())
	}

	for _, state := range []State{File, Chunked, Sent, Upgraded} {
		require.False(t, state.Unsent(), state.String())
	}
}

func TestFetchable(t *testing.T) {
	unfetched := Unfetched[map[string]string](AspectCookies)
	_, err := unfetched.Get()
	require.Equal(t, UnfetchedError{Aspect: AspectCookies}, err)
	require.EqualError(t, err, "cookies were not fetched")

	fetched := Fetched[map[string]string](AspectCookies, nil)
	value, err := fetched.Get()
	require.NoError(t, err)
	require.Nil(t, value)
	require.True(t, fetched.Fetched())
}

func TestZeroConn(t *testing.T) {
	var c Conn
	c = c.Assign("a", 1).PutPrivate("b", 2)
	value, found := c.GetAssign("a")
	require.True(t, found)
	require.Equal(t, 1, value)
}
