package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
	corsHeaders = strings.Join([]string{
		"Accept", "Authorization", "Content-Type", "Last-Event-ID", "Origin",
	}, ", ")
)

const corsMaxAge = "86400"

// corsPolicy answers cross-origin requests for the operator console.
// origins is either "*" or a comma separated allow list.
type corsPolicy struct {
	any     bool
	origins []string
}

func newCORSPolicy(origins string) corsPolicy {
	origins = strings.TrimSpace(origins)
	if origins == "" || origins == "*" {
		return corsPolicy{any: true}
	}
	var p corsPolicy
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			p.origins = append(p.origins, o)
		}
	}
	return p
}

// allow returns the Access-Control-Allow-Origin value for origin, or "" when
// the origin is not permitted.
func (p corsPolicy) allow(origin string) string {
	if p.any {
		return "*"
	}
	if origin != "" && slices.Contains(p.origins, origin) {
		return origin
	}
	return ""
}

func (p corsPolicy) apply(set func(string, string), origin string) {
	if !p.any {
		set("Vary", "Origin")
	}
	allowed := p.allow(origin)
	if allowed == "" {
		return
	}
	set("Access-Control-Allow-Origin", allowed)
	set("Access-Control-Allow-Methods", corsMethods)
	set("Access-Control-Allow-Headers", corsHeaders)
	set("Access-Control-Max-Age", corsMaxAge)
}

// middleware decorates huma responses. Preflights never reach huma because
// the mux routes OPTIONS to preflight first.
func (p corsPolicy) middleware(ctx huma.Context, next func(huma.Context)) {
	p.apply(ctx.SetHeader, ctx.Header("Origin"))
	next(ctx)
}

// preflight answers OPTIONS on any path, including /metrics and the SSE
// streams that live outside huma.
func (p corsPolicy) preflight(w http.ResponseWriter, r *http.Request) {
	p.apply(w.Header().Set, r.Header.Get("Origin"))
	w.WriteHeader(http.StatusNoContent)
}
