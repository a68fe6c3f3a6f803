package service

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/model"
	"Storefront/internal/pkg/consts"
	"Storefront/internal/pkg/redis"
	"Storefront/internal/pkg/security"
	"Storefront/internal/pkg/util"
	"Storefront/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/jinzhu/copier"
	"github.com/oklog/ulid/v2"
)

type UserService interface {
	Register(ctx context.Context, dto *dto.RegisterDTO) (*dto.UserDTO, error)
	Login(ctx context.Context, dto *dto.LoginDTO) (*dto.LoginResultDTO, error)
	Logout(ctx context.Context, token string) error
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
	GetUserInfo(ctx context.Context, id string) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, id string, dto *dto.UpdateProfileDTO, photo *dto.UploadFile) (*dto.UserDTO, error)
	ApplyMerchant(ctx context.Context, id string, token string, dto *dto.ApplyMerchantDTO, photo *dto.UploadFile) (*dto.LoginResultDTO, error)
}

// 新商家的初始评分
const (
	merchantSeedRatingTotal = 5
	merchantSeedRatingCount = 1
)

type UserServiceImpl struct {
	userRepo    repository.UserRepo
	tokens      *security.TokenIssuer
	objects     ObjectStore
	ttl         time.Duration
	rememberTTL time.Duration
}

func NewUserService(userRepo repository.UserRepo, tokens *security.TokenIssuer, objects ObjectStore, ttl time.Duration, rememberTTL time.Duration) UserService {
	return &UserServiceImpl{
		userRepo:    userRepo,
		tokens:      tokens,
		objects:     objects,
		ttl:         ttl,
		rememberTTL: rememberTTL,
	}
}

func (s *UserServiceImpl) Register(ctx context.Context, regDTO *dto.RegisterDTO) (*dto.UserDTO, error) {
	// 先归一化再校验，首尾空白不算格式错误
	email := util.NormalizeEmail(regDTO.Email)
	regDTO.Email = email
	if err := util.ValidateDTO(regDTO); err != nil {
		return nil, ErrParamInvalid
	}
	exist, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrUserExist
	}

	passwordHash, err := security.HashPassword(regDTO.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		ID:       ulid.Make().String(),
		Email:    email,
		Name:     regDTO.Name,
		Number:   util.OptionalString(regDTO.Number),
		Location: util.OptionalString(regDTO.Location),
		Password: passwordHash,
		Role:     model.RoleNormal,
	}
	if err = s.userRepo.CreateUser(ctx, user); err != nil {
		// 并发注册同一邮箱
		if repository.IsDuplicateKeyError(err) {
			return nil, ErrUserExist
		}
		return nil, err
	}
	return s.toUserDTO(user)
}

func (s *UserServiceImpl) Login(ctx context.Context, loginDTO *dto.LoginDTO) (*dto.LoginResultDTO, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, util.NormalizeEmail(loginDTO.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err = security.CheckPasswordHash(loginDTO.Password, user.Password); err != nil {
		return nil, ErrPasswordIncorrect
	}

	ttl := s.ttl
	if loginDTO.RememberMe {
		ttl = s.rememberTTL
	}
	return s.issue(user, ttl)
}

// Logout 签名加入黑名单，保留到 Token 自然过期
func (s *UserServiceImpl) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return ErrAuthenticationRequired
	}
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return ErrAuthenticationRequired
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return redis.SetWithExpiration(ctx, consts.TokenBlacklistKey+signature, true, ttl)
}

func (s *UserServiceImpl) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return true, nil
	}
	value, err := redis.GetValue(ctx, consts.TokenBlacklistKey+signature)
	if err != nil {
		return false, err
	}
	return value != "", nil
}

func (s *UserServiceImpl) GetUserInfo(ctx context.Context, id string) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.toUserDTO(user)
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, id string, profileDTO *dto.UpdateProfileDTO, photo *dto.UploadFile) (*dto.UserDTO, error) {
	if err := util.ValidateDTO(profileDTO); err != nil {
		return nil, ErrParamInvalid
	}
	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if name := util.OptionalString(profileDTO.Name); name != nil {
		user.Name = *name
	}
	if number := util.OptionalString(profileDTO.Number); number != nil {
		user.Number = number
	}

	var oldPhoto string
	if photo != nil {
		key, err := storeAvatar(ctx, s.objects, photo)
		if err != nil {
			return nil, err
		}
		if user.Photo != nil {
			oldPhoto = *user.Photo
		}
		user.Photo = &key
	}

	if err = s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	removeObjects(ctx, s.objects, oldPhoto)
	return s.toUserDTO(user)
}

// ApplyMerchant 普通用户升级为商家，角色变化后重新签发 Token
func (s *UserServiceImpl) ApplyMerchant(ctx context.Context, id string, token string, merchantDTO *dto.ApplyMerchantDTO, photo *dto.UploadFile) (*dto.LoginResultDTO, error) {
	if err := util.ValidateDTO(merchantDTO); err != nil {
		return nil, ErrParamInvalid
	}
	user, err := s.userRepo.GetUserById(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Role != model.RoleNormal {
		return nil, ErrAlreadyMerchant
	}

	user.Role = model.RoleAdmin
	user.StoreName = util.OptionalString(merchantDTO.StoreName)
	user.MapAddress = util.OptionalString(merchantDTO.MapAddress)
	user.IPCity = util.OptionalString(merchantDTO.IPCity)
	if number := util.OptionalString(merchantDTO.Number); number != nil {
		user.Number = number
	}
	user.RatingsTotal = merchantSeedRatingTotal
	user.RatingsCount = merchantSeedRatingCount

	var oldPhoto string
	if photo != nil {
		key, err := storeAvatar(ctx, s.objects, photo)
		if err != nil {
			return nil, err
		}
		if user.Photo != nil {
			oldPhoto = *user.Photo
		}
		user.Photo = &key
	}

	if err = s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	removeObjects(ctx, s.objects, oldPhoto)

	if token != "" {
		if err = s.Logout(ctx, token); err != nil {
			log.WarnContext(ctx, "revoke old token failed", "user_id", id, "err", err)
		}
	}
	return s.issue(user, s.ttl)
}

func (s *UserServiceImpl) issue(user *model.User, ttl time.Duration) (*dto.LoginResultDTO, error) {
	token, _, err := s.tokens.GenerateToken(user.ID, user.Role, ttl)
	if err != nil {
		return nil, err
	}
	userDTO, err := s.toUserDTO(user)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResultDTO{Token: token, User: userDTO, TTL: ttl}, nil
}

func (s *UserServiceImpl) toUserDTO(user *model.User) (*dto.UserDTO, error) {
	userDTO := &dto.UserDTO{}
	if err := copier.Copy(userDTO, user); err != nil {
		return nil, err
	}
	userDTO.Photo = s.photoURL(user.Photo)
	userDTO.AverageRating = user.AverageRating()
	return userDTO, nil
}

func (s *UserServiceImpl) photoURL(photo *string) string {
	if photo == nil || *photo == "" {
		return s.objects.PublicURL(consts.DefaultAvatarURL)
	}
	return s.objects.PublicURL(*photo)
}

// ProvisionAdmin 运维创建管理员账号，邮箱已存在时只提升角色，返回是否新建
func ProvisionAdmin(ctx context.Context, userRepo repository.UserRepo, email string, name string, password string) (*model.User, bool, error) {
	email = util.NormalizeEmail(email)
	if email == "" {
		return nil, false, ErrParamInvalid
	}
	user, err := userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		if user.Role != model.RoleAdmin {
			if err = userRepo.UpdateUserRole(ctx, user.ID, model.RoleAdmin); err != nil {
				return nil, false, err
			}
			user.Role = model.RoleAdmin
		}
		return user, false, nil
	}

	if len(password) < 6 {
		return nil, false, ErrParamInvalid
	}
	if name == "" {
		name = email
	}
	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user = &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		Name:         name,
		Password:     passwordHash,
		Role:         model.RoleAdmin,
		RatingsTotal: merchantSeedRatingTotal,
		RatingsCount: merchantSeedRatingCount,
	}
	if err = userRepo.CreateUser(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
