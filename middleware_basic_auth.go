package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

// basicAuthMiddleware compares digests of credentials so comparison
// time does not depend on their lengths.
type basicAuthMiddleware struct {
	next     http.Handler
	expected [sha256.Size]byte
}

func (b basicAuthMiddleware) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	user, password, ok := req.BasicAuth()
	given := credentialsDigest(user, password)

	if ok && subtle.ConstantTimeCompare(b.expected[:], given[:]) == 1 {
		b.next.ServeHTTP(w, req)

		return
	}

	w.Header().Set("WWW-Authenticate", `Basic realm="iplocation", charset="UTF-8"`)
	sendError(w, nil, "Authentication is required", http.StatusUnauthorized)
}

func credentialsDigest(user, password string) [sha256.Size]byte {
	return sha256.Sum256([]byte(user + "\x00" + password))
}

func withBasicAuth(handler http.Handler, conf configBasicAuth) http.Handler {
	if !conf.Enabled() {
		return handler
	}

	return basicAuthMiddleware{
		next:     handler,
		expected: credentialsDigest(conf.User, conf.Password),
	}
}
