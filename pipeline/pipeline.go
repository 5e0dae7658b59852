// Package pipeline threads a connection through a sequence of plugs.
package pipeline

import "github.com/namjae/plug/conn"

// Plug transforms the connection. Returning an error stops the pipeline.
type Plug func(conn.Conn) (conn.Conn, error)

type Pipeline struct {
	plugs []Plug
}

func New(plugs ...Plug) Pipeline {
	return Pipeline{plugs: plugs}
}

// Append returns a new pipeline with the plugs added to the end.
func (p Pipeline) Append(plugs ...Plug) Pipeline {
	return Pipeline{plugs: append(p.plugs[:len(p.plugs):len(p.plugs)], plugs...)}
}

// Run invokes the plugs in order until one of them halts the connection or fails.
func (p Pipeline) Run(c conn.Conn) (conn.Conn, error) {
	for _, plug := range p.plugs {
		if c.Halted() {
			break
		}

		var err error
		if c, err = plug(c); err != nil {
			return c, err
		}
	}

	return c, nil
}

// Plug lets a pipeline be nested into another one.
func (p Pipeline) Plug() Plug {
	return p.Run
}

// Func adapts a plug which never fails.
func Func(fn func(conn.Conn) conn.Conn) Plug {
	return func(c conn.Conn) (conn.Conn, error) {
		return fn(c), nil
	}
}
