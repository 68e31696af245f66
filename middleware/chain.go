package middleware

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Chain is an ordered list of middlewares. Adding a middleware whose Kind
// already exists in the chain replaces the earlier entry rather than
// appending a duplicate.
type Chain struct {
	middlewares []Middleware
	log         *logrus.Entry
}

// NewChain returns an empty chain.
func NewChain(log *logrus.Entry) *Chain {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Chain{log: log}
}

// Add appends m, replacing any existing middleware of the same Kind.
func (c *Chain) Add(m Middleware) {
	filtered := c.middlewares[:0]
	for _, existing := range c.middlewares {
		if existing.Kind() != m.Kind() {
			filtered = append(filtered, existing)
		}
	}
	c.middlewares = append(filtered, m)
}

// Len returns the number of middlewares in the chain.
func (c *Chain) Len() int { return len(c.middlewares) }

// HandleRequest runs the chain's request phase left to right. A
// short-circuiting *Error (ErrPreflightResponse or ErrTooManyRequests) or
// any other error stops the chain immediately.
func (c *Chain) HandleRequest(req *http.Request) (*http.Request, error) {
	c.log.WithField("count", len(c.middlewares)).Debug("middleware chain: request phase")
	for _, m := range c.middlewares {
		var err error
		req, err = m.HandleRequest(req)
		if err != nil {
			return req, err
		}
	}
	return req, nil
}

// HandleResponse runs the chain's response phase right to left.
func (c *Chain) HandleResponse(resp *http.Response) (*http.Response, error) {
	c.log.WithField("count", len(c.middlewares)).Debug("middleware chain: response phase")
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		var err error
		resp, err = c.middlewares[i].HandleResponse(resp)
		if err != nil {
			return resp, err
		}
	}
	return resp, nil
}
