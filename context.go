package quizAuth

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type platformContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for per-IP rate limiting and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. It feeds the
// coarse device snapshot stored with a session.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithPlatform attaches the client platform hint to ctx (for example
// "MacIntel" or "Win32"), stored verbatim in the device snapshot.
func WithPlatform(ctx context.Context, platform string) context.Context {
	return context.WithValue(ctx, platformContextKey{}, platform)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func platformFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	platform, _ := ctx.Value(platformContextKey{}).(string)
	return platform
}
