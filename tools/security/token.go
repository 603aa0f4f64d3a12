package security

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Identity is what a verified credential resolves to. Display names are
// rendered as "firstName lastName".
type Identity struct {
	UserID    string
	FirstName string
	LastName  string
}

func (id Identity) FullName() string {
	return strings.TrimSpace(id.FirstName + " " + id.LastName)
}

// Verifier validates an opaque credential and resolves the identity behind it.
// Token issuance happens elsewhere; the gateway only ever verifies.
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// Options controls signing verification parameters.
type Options struct {
	Secret []byte // HMAC key
	Alg    string // HS256/HS384/HS512, default HS256
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256"}
}

type jwtVerifier struct {
	opts Options
}

// NewJWTVerifier builds a Verifier over HMAC-signed JWTs whose claims carry
// userId/firstName/lastName.
func NewJWTVerifier(opts Options) (Verifier, error) {
	if _, err := signingMethod(opts.Alg); err != nil {
		return nil, err
	}
	if len(opts.Secret) == 0 {
		return nil, errors.New("empty jwt secret")
	}
	return &jwtVerifier{opts: opts}, nil
}

func (v *jwtVerifier) Verify(token string) (*Identity, error) {
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		// only the HMAC family is accepted
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.opts.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("claims type mismatch")
	}

	id := &Identity{
		UserID:    claimString(claims, "userId"),
		FirstName: claimString(claims, "firstName"),
		LastName:  claimString(claims, "lastName"),
	}
	if id.UserID == "" {
		// fall back to the registered subject claim
		if sub, err := claims.GetSubject(); err == nil {
			id.UserID = sub
		}
	}
	if id.UserID == "" {
		return nil, errors.New("token carries no user id")
	}
	return id, nil
}

func claimString(claims jwtlib.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// Sign issues a token for the given identity. The gateway itself never signs;
// this exists for tests and local tooling. A zero ttl falls back to two hours;
// a negative ttl mints an already-expired token.
func Sign(opts Options, id Identity, ttl time.Duration) (string, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", err
	}
	if ttl == 0 {
		ttl = 2 * time.Hour
	}
	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub":       id.UserID,
		"userId":    id.UserID,
		"firstName": id.FirstName,
		"lastName":  id.LastName,
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	}
	return jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, errors.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
