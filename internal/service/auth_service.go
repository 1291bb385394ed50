package service

import (
	"errors"
	"fmt"
	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/util"
	"lingo_stake_backend/pkg/logger"
	"lingo_stake_backend/pkg/web3"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8,max=72"`
	NativeLanguage string `json:"nativeLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	WalletAddress  string `json:"walletAddress"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
	Clock    clockwork.Clock
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config, clock clockwork.Clock) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
		Clock:    clock,
	}
}

func (s *AuthService) Register(req *RegisterRequest) (*model.User, error) {
	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet != "" && !web3.IsAddress(wallet) {
		return nil, fmt.Errorf("%w: walletAddress is not a valid address", util.ErrValidationFailed)
	}

	if _, err := s.UserRepo.FindByEmail(req.Email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:           strings.TrimSpace(req.Name),
		Email:          req.Email,
		Password:       string(hashedPassword),
		Role:           model.Learner,
		NativeLanguage: req.NativeLanguage,
		TargetLanguage: req.TargetLanguage,
		WalletAddress:  wallet,
	}
	if err := s.UserRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	user, err := s.UserRepo.FindByEmail(req.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrInvalidCredential
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredential
	}
	if user.Disabled {
		return nil, fmt.Errorf("%w: account is disabled", util.ErrPermissionDenied)
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if err := s.UserRepo.UpdateLastLogin(user.ID, now); err != nil {
		logger.Log.Warn("Failed to update last login", zap.Uint("userId", user.ID), zap.Error(err))
	}
	user.LastLogin = now
	return &LoginResponse{Token: token, User: user}, nil
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}

	user, _ := s.UserRepo.FindByID(claims.UserID)
	return user
}
