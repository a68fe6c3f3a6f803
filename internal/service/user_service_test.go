package service

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/model"
	"Storefront/internal/pkg/security"
	"Storefront/internal/repository"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	svc     UserService
	repo    repository.UserRepo
	tokens  *security.TokenIssuer
	objects *memObjectStore
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	useMiniredis(t)
	db := newTestDB(t)
	repo := repository.NewUserRepo(db)
	tokens := security.NewTokenIssuer("test-secret", "storefront")
	objects := newMemObjectStore()
	return &userFixture{
		svc:     NewUserService(repo, tokens, objects, time.Hour, 24*time.Hour),
		repo:    repo,
		tokens:  tokens,
		objects: objects,
	}
}

func ptr(s string) *string { return &s }

func TestRegisterAndLogin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, &dto.RegisterDTO{Email: " Alice@Shop.test ", Name: "Alice", Password: "secret1", Location: ptr("  ")})
	require.NoError(t, err)
	assert.Equal(t, "alice@shop.test", user.Email)
	assert.Equal(t, model.RoleNormal, user.Role)
	assert.Len(t, user.ID, 26)
	assert.NotContains(t, user.ID, "-")
	assert.Nil(t, user.Location)
	assert.True(t, strings.HasSuffix(user.Photo, "default_avatar.png"))

	_, err = f.svc.Register(ctx, &dto.RegisterDTO{Email: "alice@shop.test", Name: "Again", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserExist)
	_, err = f.svc.Register(ctx, &dto.RegisterDTO{Email: "not-an-email", Name: "Bad", Password: "secret1"})
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = f.svc.Login(ctx, &dto.LoginDTO{Email: "alice@shop.test", Password: "wrong"})
	assert.ErrorIs(t, err, ErrPasswordIncorrect)
	_, err = f.svc.Login(ctx, &dto.LoginDTO{Email: "bob@shop.test", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	result, err := f.svc.Login(ctx, &dto.LoginDTO{Email: "ALICE@shop.test", Password: "secret1", RememberMe: true})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, result.TTL)
	claims, err := f.tokens.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.RoleNormal, claims.Role)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, &dto.RegisterDTO{Email: "carol@shop.test", Name: "Carol", Password: "secret1"})
	require.NoError(t, err)
	result, err := f.svc.Login(ctx, &dto.LoginDTO{Email: "carol@shop.test", Password: "secret1"})
	require.NoError(t, err)

	revoked, err := f.svc.IsTokenRevoked(ctx, result.Token)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, f.svc.Logout(ctx, result.Token))
	revoked, err = f.svc.IsTokenRevoked(ctx, result.Token)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.ErrorIs(t, f.svc.Logout(ctx, "garbage"), ErrAuthenticationRequired)
}

func TestUpdateProfileStoresAvatar(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, &dto.RegisterDTO{Email: "dave@shop.test", Name: "Dave", Password: "secret1"})
	require.NoError(t, err)

	photo := &dto.UploadFile{Filename: "me.png", Reader: bytes.NewReader(pngImage(t, 400, 300))}
	updated, err := f.svc.UpdateProfile(ctx, user.ID, &dto.UpdateProfileDTO{Name: ptr("David"), Number: ptr("555-0101")}, photo)
	require.NoError(t, err)
	assert.Equal(t, "David", updated.Name)
	assert.Equal(t, "555-0101", *updated.Number)
	assert.True(t, strings.HasPrefix(updated.Photo, "http://cdn.test/bucket/avatars/"))
	assert.Equal(t, 1, f.objects.count())

	// 替换头像后删除旧对象
	photo = &dto.UploadFile{Filename: "me2.png", Reader: bytes.NewReader(pngImage(t, 50, 50))}
	_, err = f.svc.UpdateProfile(ctx, user.ID, &dto.UpdateProfileDTO{}, photo)
	require.NoError(t, err)
	assert.Equal(t, 1, f.objects.count())

	notImage := &dto.UploadFile{Filename: "x.txt", Reader: bytes.NewReader([]byte("hello"))}
	_, err = f.svc.UpdateProfile(ctx, user.ID, &dto.UpdateProfileDTO{}, notImage)
	assert.ErrorIs(t, err, ErrFileNotSupported)

	_, err = f.svc.UpdateProfile(ctx, "missing", &dto.UpdateProfileDTO{}, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestApplyMerchantPromotesAndReissues(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, &dto.RegisterDTO{Email: "erin@shop.test", Name: "Erin", Password: "secret1"})
	require.NoError(t, err)
	login, err := f.svc.Login(ctx, &dto.LoginDTO{Email: "erin@shop.test", Password: "secret1"})
	require.NoError(t, err)

	result, err := f.svc.ApplyMerchant(ctx, user.ID, login.Token, &dto.ApplyMerchantDTO{StoreName: ptr("Erin's Lamps"), IPCity: ptr("Lisbon")}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, result.User.Role)
	assert.Equal(t, "Erin's Lamps", *result.User.StoreName)
	assert.Equal(t, 5.0, result.User.AverageRating)
	assert.Equal(t, int64(1), result.User.RatingsCount)

	claims, err := f.tokens.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	revoked, err := f.svc.IsTokenRevoked(ctx, login.Token)
	require.NoError(t, err)
	assert.True(t, revoked)

	stored, err := f.repo.GetUserById(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin())

	_, err = f.svc.ApplyMerchant(ctx, user.ID, "", &dto.ApplyMerchantDTO{}, nil)
	assert.ErrorIs(t, err, ErrAlreadyMerchant)
}

func TestProvisionAdmin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	admin, created, err := ProvisionAdmin(ctx, f.repo, " Boss@Shop.test", "Support", "secret1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "boss@shop.test", admin.Email)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	login, err := f.svc.Login(ctx, &dto.LoginDTO{Email: "boss@shop.test", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, login.User.Role)

	// 已存在的普通用户只提升角色
	_, err = f.svc.Register(ctx, &dto.RegisterDTO{Email: "carol@shop.test", Name: "Carol", Password: "secret1"})
	require.NoError(t, err)
	promoted, created, err := ProvisionAdmin(ctx, f.repo, "carol@shop.test", "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.RoleAdmin, promoted.Role)
	stored, err := f.repo.GetUserByEmail(ctx, "carol@shop.test")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, stored.Role)

	_, _, err = ProvisionAdmin(ctx, f.repo, "new@shop.test", "", "123")
	assert.ErrorIs(t, err, ErrParamInvalid)
}
