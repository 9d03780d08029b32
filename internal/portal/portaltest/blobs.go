package portaltest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
)

var ErrIdentityExists = errors.New("identity already exists")

// Blobs is an in-memory portal.BlobStore.
type Blobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failing map[string]error

	PutErr    error
	DeleteErr error
}

func NewBlobs() *Blobs {
	return &Blobs{objects: map[string][]byte{}, failing: map[string]error{}}
}

func (b *Blobs) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.PutErr != nil {
		return b.PutErr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("blob %s: read %d bytes, expected %d", key, len(data), size)
	}

	b.objects[key] = data
	return nil
}

func (b *Blobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	if err := b.failing[key]; err != nil {
		return err
	}

	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

// FailDelete makes every removal of key return err.
func (b *Blobs) FailDelete(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[key] = err
}

func (b *Blobs) SetDeleteErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.DeleteErr = err
}

func (b *Blobs) Has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

// Keys returns the stored keys in sorted order.
func (b *Blobs) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Sorted(maps.Keys(b.objects))
}

// Deleted returns the keys removed so far, in order.
func (b *Blobs) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.deleted)
}

// Identities is an in-memory portal.IdentityProvider.
type Identities struct {
	mu    sync.Mutex
	users map[string]string

	SignUpErr error
	DeleteErr error
}

func NewIdentities() *Identities {
	return &Identities{users: map[string]string{}}
}

func (i *Identities) SignUp(ctx context.Context, username, password, email string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.SignUpErr != nil {
		return "", i.SignUpErr
	}
	if _, ok := i.users[username]; ok {
		return "", ErrIdentityExists
	}

	subject := "sub-" + username
	i.users[username] = subject
	return subject, nil
}

func (i *Identities) DeleteUser(ctx context.Context, username string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.DeleteErr != nil {
		return i.DeleteErr
	}
	delete(i.users, username)
	return nil
}

func (i *Identities) Has(username string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.users[username]
	return ok
}
