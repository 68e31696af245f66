package basicauth

import (
	"net/http"

	"github.com/hoogokok/roxy/middleware"
	"github.com/hoogokok/roxy/settings"
)

// Kind is the middleware.Middleware Kind this package registers under.
const Kind = "basic-auth"

// Middleware enforces HTTP Basic authentication. On success the
// request passes through unchanged; on failure HandleRequest returns a
// middleware.Error that the request handler turns into a 401 response
// carrying the configured realm's WWW-Authenticate challenge.
type Middleware struct {
	middleware.Base
	realm         string
	authenticator Authenticator
}

// New builds a Middleware from cfg, constructing its Authenticator via
// CreateAuthenticator.
func New(cfg Config) (*Middleware, error) {
	authenticator, err := CreateAuthenticator(cfg)
	if err != nil {
		return nil, err
	}
	return &Middleware{realm: cfg.Realm, authenticator: authenticator}, nil
}

// NewFromSettings reads the "basic_auth.*" entries of cfg.Settings and
// builds the corresponding Middleware; name is not used. It is the shape
// middleware.Factory expects.
func NewFromSettings(name string, cfg settings.MiddlewareConfig) (*Middleware, error) {
	parsed, err := fromMiddlewareSettings(cfg)
	if err != nil {
		return nil, err
	}
	return New(parsed)
}

func (m *Middleware) Kind() string { return Kind }

func (m *Middleware) HandleRequest(req *http.Request) (*http.Request, error) {
	username, password, ok := req.BasicAuth()
	if !ok {
		return req, m.unauthorizedError("missing or invalid Authorization header")
	}
	if !m.authenticator.VerifyCredentials(username, password) {
		return req, m.unauthorizedError("invalid credentials")
	}
	return req, nil
}

func (m *Middleware) unauthorizedError(message string) *middleware.Error {
	err := middleware.InvalidAuth(message)
	err.Response = m.unauthorizedResponse()
	return err
}

func (m *Middleware) unauthorizedResponse() *http.Response {
	header := http.Header{}
	header.Set("WWW-Authenticate", `Basic realm="`+m.realm+`"`)
	return &http.Response{
		StatusCode: http.StatusUnauthorized,
		Header:     header,
	}
}
