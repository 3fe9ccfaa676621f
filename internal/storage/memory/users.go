package memory

import (
	"context"
	"sync"
	"time"

	"github.com/neopos/auth-service/internal/models"
	"github.com/neopos/auth-service/internal/storage"
)

type InMemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.User
}

func NewUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		nextID: 1,
		byID:   make(map[int64]models.User),
	}
}

func (r *InMemoryUserRepository) CreateUser(_ context.Context, email, passwordHash, shopName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := models.User{
		ID:           r.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		ShopName:     shopName,
		Role:         "shopowner",
		CreatedAt:    time.Now(),
	}
	r.byID[user.ID] = user
	r.nextID++

	return &user, nil
}

func (r *InMemoryUserRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.byID {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (r *InMemoryUserRepository) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &user, nil
}
