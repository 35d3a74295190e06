// Package jwt verifies the HS256 access tokens issued by the auth provider
// and exposes them to HTTP handlers.
//
// Service wraps github.com/golang-jwt/jwt/v5 with a fixed algorithm,
// required expiry and optional audience and issuer checks. Middleware
// extracts a bearer token, verifies it and stores the token and its Claims
// in the request context, where GetClaims and GetToken read them back.
//
//	tokens, err := jwt.NewFromString(secret, jwt.WithAudience("authenticated"))
//	if err != nil {
//		return err
//	}
//	r.With(jwt.Middleware(tokens)).Get("/me", me)
//
// Every verification failure wraps ErrInvalidToken; expiry and signature
// failures additionally wrap ErrExpiredToken and ErrInvalidSignature.
package jwt
