package client

import "time"

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:8080.
	BaseURL string
	// Tokens persists credentials. Defaults to in-memory.
	Tokens TokenStore
	// Retry governs conversation creation recovery.
	Retry RetryPolicy
	// Timeout bounds non-streaming requests. Defaults to 30s.
	Timeout time.Duration
}

// Client bundles the session store, conversation directory and message
// stream controller over one shared HTTP transport. The transport keeps
// a cookie jar so the guest session cookie survives across calls.
type Client struct {
	Session    *SessionStore
	Directory  *Directory
	Controller *Controller
}

func New(opts Options) *Client {
	if opts.Tokens == nil {
		opts.Tokens = NewMemoryTokenStore()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}

	a := newAPI(opts.BaseURL, opts.Timeout)
	session := newSessionStore(a, opts.Tokens)
	a.bearer = session.Token

	directory := newDirectory(a, opts.Retry)
	controller := newController(a, session, directory)

	return &Client{
		Session:    session,
		Directory:  directory,
		Controller: controller,
	}
}
