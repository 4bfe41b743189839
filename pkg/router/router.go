package router

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// ObserverFunc is told about every finished request.
type ObserverFunc func(method string, status int, duration time.Duration)

type route struct {
	method  string
	pattern string
	handler HandlerFunc
}

type mount struct {
	prefix  string
	handler http.Handler
}

// Router matches routes in registration order. A "*" segment matches one
// path segment, a trailing "*" matches the rest of the path.
type Router struct {
	routes     []route
	mounts     []mount
	middleware []Middleware
	observers  []ObserverFunc
	log        logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Router{log: log.WithField("component", "http")}
}

type paramsKey struct{}

// Param returns the i-th wildcard value matched for the request, or "".
func Param(r *http.Request, i int) string {
	params, _ := r.Context().Value(paramsKey{}).([]string)
	if i < 0 || i >= len(params) {
		return ""
	}
	return params[i]
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern
// and returns the segments the wildcards matched.
func matchWildcardRoute(requestPath, routePattern string) ([]string, bool) {
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")
	var params []string

	// Trailing wildcard matches any number of remaining segments
	if n := len(routeSegments); n > 0 && routeSegments[n-1] == "*" {
		if len(requestSegments) < n {
			return nil, false
		}
		for i := 0; i < n-1; i++ {
			if routeSegments[i] == "*" {
				params = append(params, requestSegments[i])
			} else if requestSegments[i] != routeSegments[i] {
				return nil, false
			}
		}
		return append(params, strings.Join(requestSegments[n-1:], "/")), true
	}

	if len(requestSegments) != len(routeSegments) {
		return nil, false
	}
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			if requestSegments[i] == "" {
				return nil, false
			}
			params = append(params, requestSegments[i])
			continue
		}
		if requestSegments[i] != routeSegment {
			return nil, false
		}
	}
	return params, true
}

// --- Register paths ---
func (r *Router) register(method, path string, handler HandlerFunc) {
	r.routes = append(r.routes, route{method: method, pattern: path, handler: handler})
}

func (r *Router) GET(path string, handler HandlerFunc)   { r.register(http.MethodGet, path, handler) }
func (r *Router) POST(path string, handler HandlerFunc)  { r.register(http.MethodPost, path, handler) }
func (r *Router) PUT(path string, handler HandlerFunc)   { r.register(http.MethodPut, path, handler) }
func (r *Router) PATCH(path string, handler HandlerFunc) { r.register(http.MethodPatch, path, handler) }
func (r *Router) DELETE(path string, handler HandlerFunc) {
	r.register(http.MethodDelete, path, handler)
}

// Handle mounts h for every request whose path starts with prefix.
// Routes are tried before mounts.
func (r *Router) Handle(prefix string, h http.Handler) {
	r.mounts = append(r.mounts, mount{prefix: prefix, handler: h})
}

// Use appends middleware. The first one added is the outermost.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// Observe registers fn to be called after every request.
func (r *Router) Observe(fn ObserverFunc) {
	r.observers = append(r.observers, fn)
}

// Paths lists the registered route patterns.
func (r *Router) Paths() []string {
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt.method+" "+rt.pattern)
	}
	return out
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	var h http.Handler = http.HandlerFunc(r.dispatch)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		h = r.middleware[i](h)
	}
	h.ServeHTTP(lrw, req)

	duration := time.Since(start)
	for _, obs := range r.observers {
		obs(req.Method, lrw.statusCode, duration)
	}

	entry := r.log.WithFields(logrus.Fields{
		"method":   req.Method,
		"path":     req.URL.Path,
		"status":   lrw.statusCode,
		"duration": duration.String(),
	})
	switch {
	case lrw.statusCode >= 500:
		entry.Error("Request failed")
	case lrw.statusCode >= 400:
		entry.Warn("Request rejected")
	default:
		entry.Info("Request served")
	}
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	pathMatched := false
	for _, rt := range r.routes {
		params, ok := matchWildcardRoute(req.URL.Path, rt.pattern)
		if !ok {
			continue
		}
		if rt.method != req.Method {
			pathMatched = true
			continue
		}
		ctx := context.WithValue(req.Context(), paramsKey{}, params)
		rt.handler(w, req.WithContext(ctx))
		return
	}

	if pathMatched {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	for _, m := range r.mounts {
		if strings.HasPrefix(req.URL.Path, m.prefix) {
			m.handler.ServeHTTP(w, req)
			return
		}
	}
	http.Error(w, "Not Found", http.StatusNotFound)
}

// RateLimit rejects requests with 429 once the limiter runs dry.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// ClientRateLimit gives every client IP its own limiter. At most maxClients
// limiters are kept; the least recently seen client is forgotten first.
func ClientRateLimit(limit rate.Limit, burst, maxClients int) (Middleware, error) {
	limiters, err := lru.New[string, *rate.Limiter](maxClients)
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip := clientIP(req)
			limiter, ok := limiters.Get(ip)
			if !ok {
				limiter = rate.NewLimiter(limit, burst)
				if prev, found, _ := limiters.PeekOrAdd(ip, limiter); found {
					limiter = prev
				}
			}
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}, nil
}

func clientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// MaxBodySize caps request bodies at n bytes.
func MaxBodySize(n int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			req.Body = http.MaxBytesReader(w, req.Body, n)
			next.ServeHTTP(w, req)
		})
	}
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	if !lrw.wroteHeader {
		lrw.statusCode = code
		lrw.wroteHeader = true
	}
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	lrw.wroteHeader = true
	return lrw.ResponseWriter.Write(b)
}
