// stores.go
//
// Shared mock credential store.
// Imported by test files across packages to avoid duplicate mock definitions.
package testutil

import (
	"context"
	"sync"

	"github.com/michame/console/internal/models"
)

// MockStore implements apiclient.Store and session.Store for tests.
// Always stateful...tokens and user are held like a real store.
// Use *Err fields to inject errors for specific operations.
type MockStore struct {
	// Error injection...zero value means no error
	SetTokensErr      error
	SetAccessTokenErr error
	SetUserErr        error
	ClearErr          error

	Access  string
	Refresh string
	Profile *models.UserProfile

	// Clears counts calls to Clear, successful or not.
	Clears int

	mu sync.Mutex
}

// NewMockStore returns a MockStore holding the given tokens and optional user.
func NewMockStore(access, refresh string, user *models.UserProfile) *MockStore {
	return &MockStore{Access: access, Refresh: refresh, Profile: user}
}

func (m *MockStore) AccessToken(_ context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Access
}

func (m *MockStore) RefreshToken(_ context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Refresh
}

func (m *MockStore) SetTokens(_ context.Context, access, refresh string) error {
	if m.SetTokensErr != nil {
		return m.SetTokensErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Access, m.Refresh = access, refresh
	return nil
}

func (m *MockStore) SetAccessToken(_ context.Context, access string) error {
	if m.SetAccessTokenErr != nil {
		return m.SetAccessTokenErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Access = access
	return nil
}

func (m *MockStore) User(_ context.Context) *models.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Profile == nil {
		return nil
	}
	u := *m.Profile
	return &u
}

func (m *MockStore) SetUser(_ context.Context, u models.UserProfile) error {
	if m.SetUserErr != nil {
		return m.SetUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Profile = &u
	return nil
}

func (m *MockStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.Clears++
	m.mu.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Access, m.Refresh, m.Profile = "", "", nil
	return nil
}

// Empty reports whether tokens and user are all absent.
func (m *MockStore) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Access == "" && m.Refresh == "" && m.Profile == nil
}
