package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"barterhub/internal/domain/entity"
	"barterhub/internal/domain/repository"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = entity.RoleUser
	}

	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	return firestoreError("create user", "User", err)
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := getDocument(ctx, r.client.Collection(usersCollection).Doc(id), "User", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *firestoreUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	return getAllByID(ctx, r.client, usersCollection, ids, func(u *entity.User) string { return u.ID })
}

func (r *firestoreUserRepository) Update(ctx context.Context, user *entity.User) error {
	user.UpdatedAt = time.Now()
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user)
	return firestoreError("update user", "User", err)
}

func (r *firestoreUserRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	_, err := r.client.Collection(usersCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "lastActiveAt", Value: at},
	})
	return firestoreError("touch user", "User", err)
}
