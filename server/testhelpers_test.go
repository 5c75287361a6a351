package server

import (
	"fmt"

	"github.com/sprintline/sprintline/user"
)

// fakeUserStore satisfies user.Store for tests.
type fakeUserStore struct {
	passwords map[string]string // username -> password
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{passwords: make(map[string]string)}
}

func (f *fakeUserStore) Create(u *user.User, password string) error {
	f.passwords[u.Username] = password
	return nil
}

func (f *fakeUserStore) Get(id string) (*user.User, error) {
	return nil, fmt.Errorf("user %s not found", id)
}

func (f *fakeUserStore) GetByUsername(username string) (*user.User, error) {
	if _, ok := f.passwords[username]; !ok {
		return nil, fmt.Errorf("user %s not found", username)
	}
	return &user.User{ID: "u-" + username, Username: username}, nil
}

func (f *fakeUserStore) List() ([]*user.User, error) { return nil, nil }

func (f *fakeUserStore) Authenticate(username, password string) (*user.User, error) {
	if pw, ok := f.passwords[username]; !ok || pw != password {
		return nil, user.ErrBadCredentials
	}
	return &user.User{ID: "u-" + username, Username: username}, nil
}
