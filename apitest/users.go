package apitest

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/ems-console/users"
	"golang.org/x/crypto/bcrypt"
)

var errNotFound = errors.New("not found")

type user struct {
	users.Profile
	PasswordHash []byte
}

// userStore is an in-memory user table keyed by id with an email index.
type userStore struct {
	users    map[string]*user
	emailIds map[string]string
	lock     sync.RWMutex
}

func newUserStore() *userStore {
	return &userStore{
		users:    make(map[string]*user),
		emailIds: make(map[string]string),
	}
}

// Add hashes the password and stores the user, replacing any user with the same email.
func (us *userStore) Add(name, email, password string, role users.RoleType) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	u := &user{
		Profile: users.Profile{
			ID:         uuid.NewString(),
			Name:       name,
			Email:      strings.ToLower(email),
			Role:       role,
			IsVerified: true,
			CreatedAt:  NowTimeFunc().UTC().Truncate(time.Second),
		},
		PasswordHash: hash,
	}

	us.lock.Lock()
	defer us.lock.Unlock()
	if oldID, ok := us.emailIds[u.Email]; ok {
		delete(us.users, oldID)
	}
	us.users[u.ID] = u
	us.emailIds[u.Email] = u.ID
	return u, nil
}

func (us *userStore) GetByEmail(email string) (*user, error) {
	us.lock.RLock()
	defer us.lock.RUnlock()
	id, ok := us.emailIds[strings.ToLower(email)]
	if !ok {
		return nil, errNotFound
	}
	return us.users[id], nil
}

func (us *userStore) GetByID(id string) (*user, error) {
	us.lock.RLock()
	defer us.lock.RUnlock()
	u, ok := us.users[id]
	if !ok {
		return nil, errNotFound
	}
	return u, nil
}

// Authenticate returns the user when the password matches its bcrypt hash.
func (us *userStore) Authenticate(email, password string) (*user, error) {
	u, err := us.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, err
	}
	return u, nil
}
