package repositories

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"quickchat/domain"
	"quickchat/errors"
)

type IUserRepository interface {
	CreateUser(email, hashedPassword, displayName string) (string, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
	UpdateProfile(id string, update ProfileUpdate) (User, error)
	ListOthers(excludeID string) ([]domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// User is the repository-level representation of an account. The password
// hash never crosses the auth boundary.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	DisplayName  string    `json:"displayName"`
	Bio          string    `json:"bio,omitempty"`
	AvatarRef    string    `json:"avatarRef,omitempty"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProfileUpdate carries the mutable profile fields; nil means "unchanged".
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	AvatarRef   *string
}

func (u User) ToDomain() domain.User {
	return domain.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		AvatarRef:   u.AvatarRef,
		CreatedAt:   u.CreatedAt,
	}
}

func userKey(id string) []byte {
	return []byte("user:id:" + id)
}

func emailKey(email string) []byte {
	return []byte("user:email:" + email)
}

// CreateUser persists a new account and its email index in one transaction.
// It returns the newly generated user ID.
func (r *UserRepository) CreateUser(email, hashedPassword, displayName string) (string, error) {
	user := User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashedPassword,
		DisplayName:  displayName,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return "", errors.Storagef("marshal user: %v", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(emailKey(email), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			return "", err
		}
		return "", errors.Storagef("create user: %v", err)
	}
	return user.ID, nil
}

func (r *UserRepository) GetUserByEmail(email string) (User, error) {
	var id string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.NotFoundf("no user with email %q", email)
	}
	if err != nil {
		return User{}, errors.Storagef("get user by email: %v", err)
	}
	return r.GetUserByID(id)
}

func (r *UserRepository) GetUserByID(id string) (User, error) {
	var user User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.NotFoundf("no user with id %q", id)
	}
	if err != nil {
		return User{}, errors.Storagef("get user: %v", err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields and returns the stored result.
func (r *UserRepository) UpdateProfile(id string, update ProfileUpdate) (User, error) {
	var user User
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		}); err != nil {
			return err
		}

		if update.DisplayName != nil {
			user.DisplayName = *update.DisplayName
		}
		if update.Bio != nil {
			user.Bio = *update.Bio
		}
		if update.AvatarRef != nil {
			user.AvatarRef = *update.AvatarRef
		}

		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.NotFoundf("no user with id %q", id)
	}
	if err != nil {
		return User{}, errors.Storagef("update profile: %v", err)
	}
	return user, nil
}

// ListOthers returns every profile except the caller's, for the sidebar.
func (r *UserRepository) ListOthers(excludeID string) ([]domain.User, error) {
	prefix := []byte("user:id:")
	var users []domain.User

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var user User
				if err := json.Unmarshal(val, &user); err != nil {
					return err
				}
				if user.ID != excludeID {
					users = append(users, user.ToDomain())
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storagef("list users: %v", err)
	}
	return users, nil
}

var _ IUserRepository = (*UserRepository)(nil)
