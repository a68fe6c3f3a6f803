package handler

import (
	"Storefront/internal/api/config"
	"Storefront/internal/api/dto"
	"Storefront/internal/pkg/response"
	"Storefront/internal/pkg/util"
	"Storefront/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userSvc service.UserService
	session config.SessionConfig
}

func NewUserHandler(userSvc service.UserService, session config.SessionConfig) *UserHandler {
	return &UserHandler{
		userSvc: userSvc,
		session: session,
	}
}

func (s *UserHandler) Register(c *gin.Context) {
	var registerDTO dto.RegisterDTO
	err := c.ShouldBindJSON(&registerDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	registerDTO.Email = util.NormalizeEmail(registerDTO.Email)
	if err = util.ValidateDTO(&registerDTO); err != nil {
		response.Error(c, err)
		return
	}
	user, err := s.userSvc.Register(c.Request.Context(), &registerDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

func (s *UserHandler) Login(c *gin.Context) {
	var loginDTO dto.LoginDTO
	err := c.ShouldBindJSON(&loginDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := s.userSvc.Login(c.Request.Context(), &loginDTO)
	if err != nil {
		response.Error(c, err)
		return
	}
	s.setSessionCookie(c, result)
	response.Success(c, result)
}

func (s *UserHandler) Logout(c *gin.Context) {
	err := s.userSvc.Logout(c.Request.Context(), c.GetString("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	s.clearSessionCookie(c)
	response.Success(c, nil)
}

func (s *UserHandler) GetUserInfo(c *gin.Context) {
	user, err := s.userSvc.GetUserInfo(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

func (s *UserHandler) UpdateProfile(c *gin.Context) {
	var profileDTO dto.UpdateProfileDTO
	if err := c.ShouldBind(&profileDTO); err != nil {
		response.Error(c, err)
		return
	}

	var files openedFiles
	defer files.Close()
	photo, err := files.optionalFile(c, "photo")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	user, err := s.userSvc.UpdateProfile(c.Request.Context(), c.GetString("user_id"), &profileDTO, photo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// ApplyMerchant 升级为商家后旧 Token 作废，回写新 Cookie
func (s *UserHandler) ApplyMerchant(c *gin.Context) {
	var merchantDTO dto.ApplyMerchantDTO
	if err := c.ShouldBind(&merchantDTO); err != nil {
		response.Error(c, err)
		return
	}

	var files openedFiles
	defer files.Close()
	photo, err := files.optionalFile(c, "photo")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	result, err := s.userSvc.ApplyMerchant(c.Request.Context(), c.GetString("user_id"), c.GetString("token"), &merchantDTO, photo)
	if err != nil {
		response.Error(c, err)
		return
	}
	s.setSessionCookie(c, result)
	response.Success(c, result)
}

func (s *UserHandler) setSessionCookie(c *gin.Context, result *dto.LoginResultDTO) {
	if s.session.CookieName == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.session.CookieName, result.Token, int(result.TTL.Seconds()), "/", "", s.session.CookieSecure, true)
}

func (s *UserHandler) clearSessionCookie(c *gin.Context) {
	if s.session.CookieName == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.session.CookieName, "", -1, "/", "", s.session.CookieSecure, true)
}
