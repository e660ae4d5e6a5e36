// Package jwt provides a minimal RFC 7519 JSON Web Token implementation
// using HMAC-SHA256.
//
// It supports generation and parsing of tokens with any JSON-serializable
// claims type. Temporal claims (exp, nbf) are validated during parsing
// when present, and signatures are compared in constant time.
//
// Usage:
//
//	service, err := jwt.NewFromString("your-secret-key")
//	if err != nil { ... }
//
//	type Claims struct {
//		jwt.StandardClaims
//		UserID   int64  `json:"user_id"`
//		Username string `json:"username"`
//	}
//
//	token, err := service.Generate(Claims{
//		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
//		UserID:         42,
//		Username:       "alice",
//	})
//
//	var claims Claims
//	if err := service.Parse(token, &claims); err != nil {
//		// jwt.ErrExpiredToken, jwt.ErrSignatureInvalid, ...
//	}
package jwt
