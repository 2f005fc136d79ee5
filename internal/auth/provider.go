// Package auth covers email/password accounts: the provider collaborator,
// the sign-in/sign-up gate and session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mediconnect/mediconnect-platform/internal/docstore"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength matches the provider's weak-password rule.
const MinPasswordLength = 6

var accountNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://mediconnect.in/accounts"))

// AccountID is the users document id for a normalized email. Keying accounts
// by email lets the store reject a second sign-up for the same address.
func AccountID(email string) string {
	return uuid.NewSHA1(accountNamespace, []byte(email)).String()
}

// User is an authenticated account.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	HospitalID string `json:"hospital_id,omitempty"`
}

// Provider is the external authentication collaborator.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*User, error)
}

// LocalProvider stores accounts in the users collection with bcrypt hashes.
type LocalProvider struct {
	store docstore.Store
	cost  int
	now   func() time.Time
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider returns a provider over the document store.
func NewLocalProvider(store docstore.Store) *LocalProvider {
	if store == nil {
		panic("auth: document store required")
	}
	return &LocalProvider{store: store, cost: bcrypt.DefaultCost, now: time.Now}
}

// CreateAccount registers a patient account.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, newProviderError(CodeWeakPassword, "Password should be at least 6 characters.")
	}

	existing, err := p.store.Query(ctx, docstore.CollectionUsers, docstore.Where("email", email))
	if err != nil {
		return nil, fmt.Errorf("auth: lookup account: %w", err)
	}
	if len(existing) > 0 {
		return nil, newProviderError(CodeEmailInUse, "An account with this email already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	doc, err := docstore.CreateKeyed(ctx, p.store, docstore.CollectionUsers, AccountID(email), map[string]any{
		"email":        email,
		"passwordHash": string(hash),
		"role":         session.RolePatient,
		"createdAt":    p.now().UTC().Format(time.RFC3339),
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return nil, newProviderError(CodeEmailInUse, "An account with this email already exists.")
	}
	if err != nil {
		return nil, fmt.Errorf("auth: create account: %w", err)
	}
	return userFromDocument(doc), nil
}

// SignIn verifies credentials against the stored hash.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	docs, err := p.store.Query(ctx, docstore.CollectionUsers, docstore.Where("email", email))
	if err != nil {
		return nil, fmt.Errorf("auth: lookup account: %w", err)
	}
	if len(docs) == 0 {
		return nil, invalidCredentials()
	}
	doc := docs[0]
	hash := doc.String("passwordHash")
	if hash == "" {
		return nil, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("auth: compare password: %w", err)
	}
	return userFromDocument(&doc), nil
}

// HashPassword is used when provisioning accounts outside sign-up.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

func invalidCredentials() *ProviderError {
	return newProviderError(CodeInvalidCredentials, "Invalid email or password.")
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", newProviderError(CodeInvalidEmail, "Invalid email address.")
	}
	return email, nil
}

func userFromDocument(doc *docstore.Document) *User {
	role := doc.String("role")
	if role == "" {
		role = session.RolePatient
	}
	return &User{
		ID:         doc.ID,
		Email:      doc.String("email"),
		Role:       role,
		HospitalID: doc.String("hospitalId"),
	}
}
