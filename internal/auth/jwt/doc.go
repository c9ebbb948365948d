// Package jwt verifies and mints the HMAC-signed bearer tokens accepted
// by the gateway.
//
// Tokens are compact JWS objects signed with a pre-shared key using
// HS256, HS384 or HS512. A Validator checks the signature, the time
// based claims and the presence of a subject, then exposes the subject
// and role to the authentication middleware:
//
//	v, err := jwt.NewValidator(key, []string{jwt.AlgHS256})
//	if err != nil {
//	    return err
//	}
//	claims, err := v.Validate(token)
//
// A Signer produces tokens with the same key, which is handy in tests
// and local tooling:
//
//	s, _ := jwt.NewSigner(key, jwt.AlgHS256)
//	token, err := s.Sign(jwt.Claims{Subject: "42", Role: "USER"}, time.Hour)
package jwt
