package auth

import (
	"context"
	"sync"
)

// Mode selects which provider call a gate submission makes.
type Mode string

const (
	ModeSignIn Mode = "signin"
	ModeSignUp Mode = "signup"
)

// Gate success messages.
const (
	SignedInMessage = "Signed in successfully."
	SignedUpMessage = "Account created and signed in."
)

// Status is the gate's feedback state.
type Status struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Success string `json:"success,omitempty"`
}

// Gate holds the sign-in/sign-up form state and submits it to the provider.
type Gate struct {
	provider Provider

	mu       sync.Mutex
	mode     Mode
	email    string
	password string
	status   Status
}

// NewGate starts a gate in sign-in mode.
func NewGate(provider Provider) *Gate {
	if provider == nil {
		panic("auth: provider required")
	}
	return &Gate{provider: provider, mode: ModeSignIn}
}

// Mode returns the current mode.
func (g *Gate) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Status returns the current feedback.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// SetMode switches to mode; unknown modes fall back to sign-in.
func (g *Gate) SetMode(mode Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if mode != ModeSignUp {
		mode = ModeSignIn
	}
	if g.mode != mode {
		g.mode = mode
		g.status = Status{}
	}
}

// Toggle flips between sign-in and sign-up and clears feedback.
func (g *Gate) Toggle() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode == ModeSignIn {
		g.mode = ModeSignUp
	} else {
		g.mode = ModeSignIn
	}
	g.status = Status{}
}

// SetCredentials replaces the form fields.
func (g *Gate) SetCredentials(email, password string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.email = email
	g.password = password
}

// Submit makes exactly one provider call for the current mode. On
// rejection the provider message is kept in the status and returned with
// the error.
func (g *Gate) Submit(ctx context.Context) (*User, error) {
	g.mu.Lock()
	if g.status.Loading {
		g.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	g.status = Status{Loading: true}
	mode, email, password := g.mode, g.email, g.password
	g.mu.Unlock()

	var (
		user *User
		err  error
	)
	if mode == ModeSignUp {
		user, err = g.provider.CreateAccount(ctx, email, password)
	} else {
		user, err = g.provider.SignIn(ctx, email, password)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.status = Status{Error: MessageFor(err)}
		return nil, err
	}
	msg := SignedInMessage
	if mode == ModeSignUp {
		msg = SignedUpMessage
	}
	g.status = Status{Success: msg}
	return user, nil
}
