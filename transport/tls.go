package transport

import (
	"crypto/tls"
	"net"
	"time"
)

// TLS is the TCP transport terminating TLS. The config may come from anywhere, e.g.
// autocert.Manager.TLSConfig().
type TLS struct {
	config *tls.Config
	TCP
}

func NewTLS(config *tls.Config, interrupt time.Duration) *TLS {
	return &TLS{
		config: config,
		TCP:    newTCP(nil, interrupt),
	}
}

func (t *TLS) Bind(addr string) error {
	tcp, err := bindTCP(addr)
	if err != nil {
		return err
	}

	t.l = tlsAdapter{tcp, tls.NewListener(tcp, t.config)}
	return nil
}

type tlsAdapter struct {
	*net.TCPListener
	tls net.Listener
}

func (t tlsAdapter) Accept() (net.Conn, error) {
	return t.tls.Accept()
}
