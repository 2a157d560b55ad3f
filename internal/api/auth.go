package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

const authRealm = `Basic realm="Switchboard API"`

// basicAuth guards operations that declare the basicAuth security scheme.
// Credentials are kept as digests so comparisons take the same time for
// any input length.
type basicAuth struct {
	user, pass [sha256.Size]byte
}

func newBasicAuth(username, password string) *basicAuth {
	return &basicAuth{
		user: sha256.Sum256([]byte(username)),
		pass: sha256.Sum256([]byte(password)),
	}
}

// credentials extracts base64 "user:pass" from the Authorization header or,
// for EventSource clients that cannot set headers, the auth query parameter.
func credentials(ctx huma.Context) (string, string) {
	if header := ctx.Header("Authorization"); header != "" {
		scheme, encoded, _ := strings.Cut(header, " ")
		if !strings.EqualFold(scheme, "Basic") {
			return "", "Invalid authentication type"
		}
		return encoded, ""
	}
	if encoded := ctx.Query("auth"); encoded != "" {
		return encoded, ""
	}
	return "", "Authentication required"
}

func (a *basicAuth) valid(encoded string) bool {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}
	u := sha256.Sum256([]byte(user))
	p := sha256.Sum256([]byte(pass))
	userOK := subtle.ConstantTimeCompare(u[:], a.user[:])
	passOK := subtle.ConstantTimeCompare(p[:], a.pass[:])
	return userOK&passOK == 1
}

func (a *basicAuth) middleware(api huma.API) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}
		encoded, problem := credentials(ctx)
		if problem == "" && !a.valid(encoded) {
			problem = "Invalid credentials"
		}
		if problem != "" {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(api, ctx, http.StatusUnauthorized, problem)
			return
		}
		next(ctx)
	}
}
