package status

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringCode(t *testing.T) {
	t.Run("known codes", func(t *testing.T) {
		for _, code := range KnownCodes {
			require.Equal(t, strconv.Itoa(int(code)), StringCode(code))
		}
	})

	t.Run("out of table", func(t *testing.T) {
		require.Equal(t, "999", StringCode(999))
		require.Equal(t, "0", StringCode(0))
	})
}

func TestText(t *testing.T) {
	t.Run("known codes", func(t *testing.T) {
		for _, code := range KnownCodes {
			require.NotEqual(t, unknown, Text(code), "code %d", code)
		}

		require.Equal(t, Status("OK"), Text(OK))
		require.Equal(t, Status("Not Found"), Text(NotFound))
		require.Equal(t, Status("I'm a teapot"), Text(Teapot))
	})

	t.Run("unknown codes", func(t *testing.T) {
		require.Equal(t, unknown, Text(306))
		require.Equal(t, unknown, Text(599))
		require.Equal(t, unknown, Text(1000))
	})
}

func TestKnownCodes(t *testing.T) {
	require.Equal(t, Continue, KnownCodes[0])
	require.Equal(t, NetworkAuthenticationRequired, KnownCodes[len(KnownCodes)-1])
	require.IsIncreasing(t, KnownCodes)
}

func TestAllowsBody(t *testing.T) {
	require.True(t, AllowsBody(OK))
	require.True(t, AllowsBody(NotFound))
	require.False(t, AllowsBody(NoContent))
	require.False(t, AllowsBody(NotModified))
	require.False(t, AllowsBody(SwitchingProtocols))

	for _, code := range KnownCodes {
		require.Equal(t, code < 200, Informational(code))
	}
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, RequestEntityTooLarge, CodeOf(ErrBodyTooLarge))
	require.Equal(t, BadRequest, CodeOf(NewError(BadRequest, "nope")))
	require.Equal(t, InternalServerError, CodeOf(errors.New("whatever")))
}

func BenchmarkStringCode(b *testing.B) {
	code := KnownCodes[rand.IntN(len(KnownCodes))]
	b.ResetTimer()

	for range b.N {
		_ = StringCode(code)
	}
}
