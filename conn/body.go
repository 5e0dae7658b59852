package conn

// ReadBody reads the next piece of the request body. The body isn't cached, so it can be
// consumed only once: keep calling ReadBody while the returned chunk has More set.
func (c Conn) ReadBody(opts ...BodyOption) (Conn, BodyChunk, error) {
	options := c.bodyOptions(opts)

	chunk, next, err := c.adapter.ReadReqBody(options)
	if err != nil {
		return c, BodyChunk{}, transportError("read_req_body", err)
	}

	if next != nil {
		c.adapter = next
	}

	return c, chunk, nil
}

// ReadFullBody reads the body until it's over. The total length is limited by the Length
// option as a whole; ErrBodyTooLarge is returned when it's exceeded.
func (c Conn) ReadFullBody(opts ...BodyOption) (Conn, []byte, error) {
	options := c.bodyOptions(opts)

	var body []byte
	for {
		var (
			chunk BodyChunk
			err   error
		)

		c, chunk, err = c.ReadBody(func(o *BodyOptions) { *o = options })
		if err != nil {
			return c, body, err
		}

		body = append(body, chunk.Data...)
		if len(body) > options.Length {
			return c, body, ErrBodyTooLarge
		}

		if !chunk.More {
			return c, body, nil
		}
	}
}

// bodyOptions applies the options over the connection defaults. Non-positive limits fall
// back to DefaultBodyOptions.
func (c Conn) bodyOptions(opts []BodyOption) BodyOptions {
	options := c.bodyOpts
	for _, opt := range opts {
		opt(&options)
	}

	return options.withDefaults()
}
