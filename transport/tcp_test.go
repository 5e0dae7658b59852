package transport

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTCP(t *testing.T) {
	tcp := NewTCP(10 * time.Millisecond)
	require.NoError(t, tcp.Bind("127.0.0.1:0"))

	done := make(chan error, 1)
	go func() {
		done <- tcp.Listen(func(conn net.Conn) {
			client := NewClient(conn, time.Second, make([]byte, 64))
			data, err := client.Read()
			if err != nil {
				return
			}

			_, _ = client.Write(append([]byte("echo: "), data...))
		})
	}()

	conn, err := net.Dial("tcp", tcp.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("Hello"))
	require.NoError(t, err)
	response, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Equal(t, "echo: Hello", string(response))
	require.NoError(t, conn.Close())

	tcp.Stop()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		require.Fail(t, "listener did not stop in time")
	}

	tcp.Wait()
	require.NoError(t, tcp.Close())
}

func TestClientPushback(t *testing.T) {
	server, peer := net.Pipe()
	defer peer.Close()

	client := NewClient(server, 0, make([]byte, 16))
	go func() {
		_, _ = peer.Write([]byte("Hello, world"))
	}()

	data, err := client.Read()
	require.NoError(t, err)
	require.Equal(t, "Hello, world", string(data))

	client.Pushback(data[7:])
	data, err = client.Read()
	require.NoError(t, err)
	require.Equal(t, "world", string(data))
	require.NoError(t, client.Close())
}
