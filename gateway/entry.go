package gateway

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jonwraymond/sessioncache/route"
)

// Request is the gateway's view of an outgoing request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Accept returns the negotiated representation for cache keying.
func (r *Request) Accept() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Accept")
}

// Response is a response snapshot suitable for storage and replay.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Cacheable reports whether the response may enter a store.
// Only 2xx/3xx responses qualify; error pages are never persisted.
func (r *Response) Cacheable() bool {
	return r != nil && r.Status >= 200 && r.Status < 400
}

// Clone returns a deep copy so stored snapshots cannot be mutated by
// callers that received them.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := &Response{Status: r.Status}
	if r.Header != nil {
		out.Header = r.Header.Clone()
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// Entry is a stored response snapshot together with the strategy that
// produced it and the store version it belongs to.
type Entry struct {
	Method   string
	URL      string
	Response *Response
	Strategy route.Strategy
	Scope    string
	Version  string
	StoredAt time.Time

	// TTL bounds the entry's freshness. Zero means no bound.
	TTL time.Duration
}

// EntryKey derives the store key for a request:
// method, normalized URL, and negotiated representation.
func EntryKey(req *Request) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(req.Method))
	b.WriteByte(' ')
	b.WriteString(normalizeURL(req.URL))
	if accept := req.Accept(); accept != "" {
		b.WriteByte(' ')
		b.WriteString(accept)
	}
	return b.String()
}

// normalizeURL strips fragments and sorts query parameters so that
// equivalent URLs share a cache entry.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := url.Values{}
		for _, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for _, v := range vals {
				ordered.Add(k, v)
			}
		}
		u.RawQuery = ordered.Encode()
	}
	return u.String()
}
