package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

type mockUserRepo struct {
	users    map[string]*model.User
	byID     map[uuid.UUID]*model.User
	profiles map[uuid.UUID]*model.Profile
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:    make(map[string]*model.User),
		byID:     make(map[uuid.UUID]*model.User),
		profiles: make(map[uuid.UUID]*model.Profile),
	}
}

func (m *mockUserRepo) CreateWithProfile(_ context.Context, user *model.User, profile *model.Profile) error {
	if _, ok := m.users[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	profile.UserID = user.ID
	m.users[user.Email] = user
	m.byID[user.ID] = user
	m.profiles[user.ID] = profile
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.users[email], nil
}

func (m *mockUserRepo) GetProfile(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, profile *model.Profile) error {
	if _, ok := m.profiles[profile.UserID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *profile
	m.profiles[profile.UserID] = &cp
	return nil
}

func TestAuthService_Register(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: " Test@Example.com", Password: "password123",
		FirstName: "Jo", LastName: "Doe",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "test@example.com", resp.User.Email)
	assert.Equal(t, model.RoleCustomer, resp.User.Role)

	profile := repo.profiles[resp.User.ID]
	require.NotNil(t, profile)
	assert.Equal(t, model.RoleCustomer, profile.UserType)

	token, err := jwt.Parse(resp.Token, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	sub, err := token.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), sub)
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	repo.users["test@example.com"] = &model.User{Email: "test@example.com"}

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: "test@example.com", Password: "password123",
		FirstName: "Jo", LastName: "Doe",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	repo.users["test@example.com"] = &model.User{
		ID: uuid.New(), Email: "test@example.com", Password: string(hashed), Role: model.RoleCustomer,
	}

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "TEST@example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email: "test@example.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email: "nobody@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)
	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email: "a@example.com", Password: "password123", FirstName: "A", LastName: "B",
	})
	require.NoError(t, err)

	phone, city, pincode := "5550100", " Springfield ", "12345"
	profile, err := svc.UpdateProfile(context.Background(), resp.User.ID, ProfileUpdate{
		Phone: &phone, City: &city, Pincode: &pincode,
	})
	require.NoError(t, err)
	assert.Equal(t, "Springfield", profile.City)
	assert.Equal(t, "Springfield, 12345", profile.FullAddress())

	stored, err := svc.GetProfile(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "5550100", stored.Phone)

	long := "12345678901234567890"
	_, err = svc.UpdateProfile(context.Background(), resp.User.ID, ProfileUpdate{Phone: &long})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "phone", verr.Field)

	_, err = svc.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
