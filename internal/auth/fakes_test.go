package auth

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/auth-token-service/internal/model"
	"github.com/iliyamo/auth-token-service/internal/repository"
	"github.com/iliyamo/auth-token-service/internal/utils"
)

// fakeUserDirectory is an in-memory UserDirectory tracking how often each
// password is rewritten.
type fakeUserDirectory struct {
	mu        sync.Mutex
	users     map[uint64]model.User
	setCalls  int
	lastSetID uint64
}

func newFakeUserDirectory(users ...model.User) *fakeUserDirectory {
	d := &fakeUserDirectory{users: make(map[uint64]model.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeUserDirectory) GetByID(_ context.Context, id uint64) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (d *fakeUserDirectory) GetByEmail(_ context.Context, email string) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (d *fakeUserDirectory) SetPasswordHash(_ context.Context, id uint64, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	d.users[id] = u
	d.setCalls++
	d.lastSetID = id
	return nil
}

func (d *fakeUserDirectory) passwordSetCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setCalls
}

// fakeNotifier records dispatches and signals on a channel so tests can wait
// for the async send.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []sentMessage
	fired chan struct{}
	fail  error
}

type sentMessage struct {
	Email       string
	DisplayName string
	Token       string
	ExpiresAt   time.Time
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{fired: make(chan struct{}, 16)}
}

func (n *fakeNotifier) SendRecoveryMessage(_ context.Context, email, displayName, tokenValue string, expiresAt time.Time) error {
	n.mu.Lock()
	n.sent = append(n.sent, sentMessage{Email: email, DisplayName: displayName, Token: tokenValue, ExpiresAt: expiresAt})
	err := n.fail
	n.mu.Unlock()
	n.fired <- struct{}{}
	return err
}

func (n *fakeNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentMessage, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *fakeNotifier) waitForSend(timeout time.Duration) bool {
	select {
	case <-n.fired:
		return true
	case <-time.After(timeout):
		return false
	}
}

// testStore builds a memory store whose consume path applies passwords
// through the fake directory, mirroring the MySQL transaction.
func testStore(dir *fakeUserDirectory) *repository.MemoryCredentialStore {
	store := repository.NewMemoryCredentialStore()
	store.ApplyPassword = func(ctx context.Context, userID uint64, hash string) error {
		return dir.SetPasswordHash(ctx, userID, hash)
	}
	return store
}

func testUser(id uint64, email, password string) model.User {
	hash, err := utils.HashPassword(password, 4) // minimum bcrypt cost keeps tests fast
	if err != nil {
		panic(err)
	}
	return model.User{
		ID:           id,
		Email:        email,
		DisplayName:  "Test User",
		PasswordHash: hash,
		Role:         model.RoleStandard,
		IsActive:     true,
	}
}
