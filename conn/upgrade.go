package conn

import (
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
)

// Inform sends an informational (1xx) response ahead of the final one. Adapters not capable
// of it silently ignore the call.
func (c Conn) Inform(code status.Code, headers ...kv.Pair) (Conn, error) {
	if !c.state.Unsent() {
		return c, ErrAlreadySent
	}

	if !status.Informational(code) {
		return c, ErrInvalidStatus
	}

	informer, ok := c.adapter.(Informer)
	if !ok {
		return c, nil
	}

	next, err := informer.Inform(code, headers)
	if err != nil {
		return c, transportError("inform", err)
	}

	if next != nil {
		c.adapter = next
	}

	return c, nil
}

// UpgradeAdapter asks the adapter to hand the connection over to the protocol once the
// pipeline is over. The upgrade itself is performed by the transport.
func (c Conn) UpgradeAdapter(protocol string, args any) (Conn, error) {
	if !c.stageable() {
		return c, ErrAlreadySent
	}

	upgrader, ok := c.adapter.(Upgrader)
	if !ok {
		return c, ErrUpgradeUnsupported
	}

	next, err := upgrader.Upgrade(protocol, args)
	if err != nil {
		return c, transportError("upgrade", err)
	}

	if next != nil {
		c.adapter = next
	}

	c.state = Upgraded
	return c, nil
}
