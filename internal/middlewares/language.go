package middlewares

import "net/http"

// LanguageTransport sets Accept-Language on outgoing requests so the console
// answers validation errors in the language currently selected by the user.
// An empty language leaves the request untouched.
func LanguageTransport(language func() string) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if lang := language(); lang != "" {
				r = r.Clone(r.Context())
				r.Header.Set("Accept-Language", lang)
			}
			return next.RoundTrip(r)
		})
	}
}

// Chain wraps base with the given middlewares; the first one is the outermost.
func Chain(base http.RoundTripper, mws ...func(http.RoundTripper) http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}
