package conn

import (
	"maps"

	"github.com/namjae/plug/http/query"
)

// FetchQueryParams decodes the query string. Fetching again is a no-op.
func (c Conn) FetchQueryParams() (Conn, error) {
	if c.queryParams.Fetched() {
		return c, nil
	}

	params, err := query.Decode(c.QueryString)
	if err != nil {
		return c, err
	}

	c.queryParams = Fetched(AspectQueryParams, params)
	c.params = Fetched(AspectParams, c.mergeParams(params))
	return c, nil
}

// QueryParams returns the decoded query string.
func (c Conn) QueryParams() (query.Params, error) {
	return c.queryParams.Get()
}

// Params returns the query params merged with the path params, the latter taking precedence.
func (c Conn) Params() (query.Params, error) {
	return c.params.Get()
}

// PutPathParams sets the params extracted from the path by a router.
func (c Conn) PutPathParams(params map[string]string) Conn {
	c.pathParams = maps.Clone(params)
	if queryParams, err := c.queryParams.Get(); err == nil {
		c.params = Fetched(AspectParams, c.mergeParams(queryParams))
	}

	return c
}

func (c Conn) PathParams() map[string]string {
	return maps.Clone(c.pathParams)
}

func (c Conn) mergeParams(queryParams query.Params) query.Params {
	params := make(query.Params, len(queryParams)+len(c.pathParams))
	maps.Copy(params, queryParams)
	for key, value := range c.pathParams {
		params[key] = value
	}

	return params
}
