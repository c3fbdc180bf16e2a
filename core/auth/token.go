package auth

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/m-mizutani/goerr/v2"
)

type Claims struct {
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	method jwt.SigningMethod
}

func NewVerifier(secret, algorithm string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, goerr.New("empty signing secret")
	}
	alg := strings.ToUpper(strings.TrimSpace(algorithm))
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, goerr.New("unsupported signing algorithm", goerr.V("algorithm", algorithm))
	}
	return &Verifier{secret: []byte(secret), method: method}, nil
}

// Verify returns nil for any token that cannot be trusted; callers decide whether
// anonymous access is acceptable.
func (v *Verifier) Verify(raw string) *Identity {
	tok := stripScheme(raw)
	if v == nil || tok == "" {
		return nil
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{v.method.Alg()}))
	if err != nil || !parsed.Valid {
		return nil
	}
	subject, err := uuid.FromString(strings.TrimSpace(claims.Subject))
	if err != nil || subject.IsNil() {
		return nil
	}
	return &Identity{Subject: subject, Role: ParseRole(claims.UserType)}
}

// Issue signs a token the verifier accepts. A non-positive ttl yields a token without expiry.
func (v *Verifier) Issue(subject uuid.UUID, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserType: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(v.method, claims).SignedString(v.secret)
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

func stripScheme(raw string) string {
	tok := strings.TrimSpace(raw)
	if len(tok) > 7 && strings.EqualFold(tok[:7], "bearer ") {
		tok = strings.TrimSpace(tok[7:])
	}
	return tok
}
