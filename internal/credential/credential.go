// Package credential is the credential gateway: it issues and checks
// verifiable credentials through an identity backend. The backend
// itself is an external collaborator; this package defines the narrow
// contract the engine consumes and a JWT-backed reference
// implementation built on github.com/golang-jwt/jwt/v5.
package credential

import (
	"context"
	"crypto/ed25519"
	crand "crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes the two credentialSubject shapes a gateway issues.
type Kind string

const (
	// KindStream issues an AuditableItemStreamCredential.
	KindStream Kind = "AuditableItemStreamCredential"
	// KindEntry issues an AuditableItemStreamEntryCredential.
	KindEntry Kind = "AuditableItemStreamEntryCredential"
)

// Subject is the credentialSubject payload: a stream
// credential omits Index, an entry credential sets it.
type Subject struct {
	Kind        Kind
	DateCreated string
	UserIdentity string
	Hash        string
	Signature   string
	Index       *int
}

// Status reports the outcome of checking a previously issued credential.
type Status struct {
	Subject Subject
	Revoked bool
}

// ErrRevoked is a sentinel for callers that prefer to turn
// Status.Revoked into an error they can errors.Is against; Check itself
// never returns it and reports revocation only through Status.Revoked.
var ErrRevoked = errors.New("credential: revoked")

// Gateway issues and checks verifiable credentials.
type Gateway interface {
	// Issue returns the UTF-8 bytes of a JWT encoding a verifiable
	// credential over subject.
	Issue(ctx context.Context, subject Subject) ([]byte, error)

	// Check decodes a credential blob and reports its subject and
	// revocation state.
	Check(ctx context.Context, blob []byte) (Status, error)

	// Revoke marks a previously issued credential (identified by its
	// jti) as revoked.
	Revoke(ctx context.Context, jti string) error
}

type claims struct {
	jwt.RegisteredClaims
	CredentialSubject Subject `json:"credentialSubject"`
}

// jwtGateway is the reference identity-backend implementation: an
// in-process Ed25519-signed JWT issuer with an in-memory revocation
// list. A production deployment swaps this for a call to a real
// identity service; the Gateway contract is what the engine depends on.
type jwtGateway struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	issuer  string
	mu      sync.Mutex
	revoked map[string]bool
	nextJTI func() string
}

// NewJWTGateway constructs a jwtGateway with a freshly generated
// Ed25519 keypair. issuer identifies the identity backend in the
// credential's "iss" claim.
func NewJWTGateway(issuer string, jtiSource func() string) (Gateway, error) {
	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	if err != nil {
		return nil, fmt.Errorf("credential: generate issuer key: %w", err)
	}
	return &jwtGateway{
		priv:    priv,
		pub:     pub,
		issuer:  issuer,
		revoked: make(map[string]bool),
		nextJTI: jtiSource,
	}, nil
}

// Issue implements Gateway.
func (g *jwtGateway) Issue(_ context.Context, subject Subject) ([]byte, error) {
	jti := g.nextJTI()
	now := time.Now().UTC()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       jti,
			Issuer:   g.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		CredentialSubject: subject,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, c)
	signed, err := token.SignedString(g.priv)
	if err != nil {
		return nil, fmt.Errorf("credential: sign jwt: %w", err)
	}
	return []byte(signed), nil
}

// Check implements Gateway.
func (g *jwtGateway) Check(_ context.Context, blob []byte) (Status, error) {
	var c claims
	token, err := jwt.ParseWithClaims(string(blob), &c, func(t *jwt.Token) (interface{}, error) {
		return g.pub, nil
	})
	if err != nil {
		return Status{}, fmt.Errorf("credential: parse jwt: %w", err)
	}
	if !token.Valid {
		return Status{}, fmt.Errorf("credential: invalid jwt")
	}
	g.mu.Lock()
	revoked := g.revoked[c.ID]
	g.mu.Unlock()
	return Status{
		Subject: c.CredentialSubject,
		Revoked: revoked,
	}, nil
}

// Revoke implements Gateway.
func (g *jwtGateway) Revoke(_ context.Context, jti string) error {
	g.mu.Lock()
	g.revoked[jti] = true
	g.mu.Unlock()
	return nil
}
