package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/snapfeed/snapfeed/config"
	"github.com/snapfeed/snapfeed/models"
	"github.com/snapfeed/snapfeed/utils"
)

const tokenTTL = 72 * time.Hour

// AuthController handles registration, login and the credential lifecycle
// (email verification, password reset, OAuth sign-in).
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a new account from email and password.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Email         string `json:"email" binding:"required"`
		Password      string `json:"password" binding:"required"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid email address")
		return
	}
	if len(req.Password) < 6 || len(req.Password) > 72 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "password must be 6-72 characters")
		return
	}

	if config.Get().RegisterCaptchaEnabled {
		if !utils.VerifyCaptcha(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
			utils.Error(ctx, http.StatusBadRequest, 40004, "captcha mismatch or expired")
			return
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := a.db.Create(&user).Error; err != nil {
		// The unique email index is the arbiter, so a concurrent duplicate
		// register cannot slip between a check and the insert.
		var existing models.User
		if a.db.Where("email = ?", email).First(&existing).Error == nil {
			utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	ctx.JSON(http.StatusCreated, userResponse(user))
}

// Captcha returns a fresh captcha id and base64 image (data URI).
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}

// Login verifies credentials and issues a JWT. The request is form encoded
// with the email carried in the username field.
func (a *AuthController) Login(ctx *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(ctx.PostForm("username")))
	password := ctx.PostForm("password")
	if email == "" || password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "username and password are required")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid credentials")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid credentials")
		return
	}
	if !user.IsActive {
		utils.Error(ctx, http.StatusBadRequest, 40011, "inactive user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, tokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Logout revokes the presented token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "invalid authorization header")
		return
	}

	token := strings.TrimSpace(parts[1])
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(tokenTTL)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// RequestVerifyToken emails a one-time verification code. The response never
// reveals whether the address has an account.
func (a *AuthController) RequestVerifyToken(ctx *gin.Context) {
	a.sendCode(ctx, utils.CodePurposeVerify, "Snapfeed email verification",
		"Your verification code is: %s\nIt expires in 10 minutes.")
}

// ForgotPassword emails a one-time password reset code.
func (a *AuthController) ForgotPassword(ctx *gin.Context) {
	a.sendCode(ctx, utils.CodePurposeReset, "Snapfeed password reset",
		"Your password reset code is: %s\nIt expires in 10 minutes.")
}

func (a *AuthController) sendCode(ctx *gin.Context, purpose, subject, bodyFmt string) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "email is required")
		return
	}
	if !utils.EmailCooldownTrySet(email, 60*time.Second) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many requests, try again later")
		return
	}

	accepted := func() {
		ctx.JSON(http.StatusAccepted, gin.H{"message": "if the account exists, a code has been sent"})
	}

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		// Same response as the happy path so addresses cannot be probed.
		accepted()
		return
	}

	code := utils.GenerateVerificationCode(6)
	if err := utils.SendMail(email, subject, fmt.Sprintf(bodyFmt, code)); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to send code, try again later")
		return
	}
	// Save only after a successful send so dead codes do not pile up.
	utils.SaveCode(purpose, email, code, 10*time.Minute)
	accepted()
}

// Verify consumes an emailed code and marks the account verified.
func (a *AuthController) Verify(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Token string `json:"token" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid request payload")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !utils.VerifyAndConsumeCode(utils.CodePurposeVerify, email, strings.TrimSpace(req.Token)) {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid or expired code")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40044, "unknown account")
		return
	}
	user.IsVerified = true
	if err := a.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to update user")
		return
	}

	utils.Success(ctx, userResponse(user))
}

// ResetPassword consumes a reset code and stores a new password hash.
func (a *AuthController) ResetPassword(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40045, "invalid request payload")
		return
	}
	if len(req.Password) < 6 || len(req.Password) > 72 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "password must be 6-72 characters")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !utils.VerifyAndConsumeCode(utils.CodePurposeReset, email, strings.TrimSpace(req.Token)) {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid or expired code")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40044, "unknown account")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}
	user.PasswordHash = hash
	if err := a.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to update user")
		return
	}

	utils.Success(ctx, gin.H{"message": "password updated"})
}

// OAuthRedirect sends the browser to the provider's authorization page.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := ctx.Param("provider")
	conf, err := a.oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "unsupported oauth provider")
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	ctx.Redirect(http.StatusFound, conf.AuthCodeURL(state))
}

// OAuthCallback exchanges the authorization code, resolves the provider
// account's email and signs the user in, creating the account on first use.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := ctx.Param("provider")
	conf, err := a.oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "unsupported oauth provider")
		return
	}

	if !utils.ConsumeState(ctx.Query("state")) {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid oauth state")
		return
	}

	code := ctx.Query("code")
	if code == "" {
		utils.Error(ctx, http.StatusBadRequest, 40052, "missing authorization code")
		return
	}

	oauthCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()
	token, err := conf.Exchange(oauthCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50250, "token exchange failed")
		return
	}

	email, err := fetchOAuthEmail(oauthCtx, provider, conf, token)
	if err != nil || email == "" {
		utils.Error(ctx, http.StatusBadGateway, 50251, "failed to resolve provider account")
		return
	}
	email = strings.ToLower(email)

	var user models.User
	err = a.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Provider-owned addresses arrive verified; no local password is set
		// until the user runs a password reset.
		user = models.User{Email: email, IsActive: true, IsVerified: true}
		err = a.db.Create(&user).Error
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to resolve user")
		return
	}
	if !user.IsActive {
		utils.Error(ctx, http.StatusBadRequest, 40011, "inactive user")
		return
	}

	jwtToken, err := utils.GenerateToken(user.ID, user.Email, tokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	ctx.Redirect(http.StatusFound, config.Get().APIBaseURL+"/#token="+jwtToken)
}

func (a *AuthController) oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	redirect := strings.TrimRight(cfg.OAuthRedirectBase, "/") + "/auth/oauth/" + provider + "/callback"
	switch provider {
	case "github":
		if cfg.GitHubClientID == "" {
			return nil, errors.New("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"user:email"},
		}, nil
	case "google":
		if cfg.GoogleClientID == "" {
			return nil, errors.New("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"openid", "email"},
		}, nil
	default:
		return nil, errors.New("unsupported provider")
	}
}

func fetchOAuthEmail(ctx context.Context, provider string, conf *oauth2.Config, token *oauth2.Token) (string, error) {
	client := conf.Client(ctx, token)
	switch provider {
	case "github":
		resp, err := client.Get("https://api.github.com/user/emails")
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
			return "", err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				return e.Email, nil
			}
		}
		if len(emails) > 0 {
			return emails[0].Email, nil
		}
		return "", errors.New("no email on github account")
	case "google":
		resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		var info struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return "", err
		}
		return info.Email, nil
	default:
		return "", errors.New("unsupported provider")
	}
}

// userResponse is the public representation of a user account.
func userResponse(user models.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"email":       user.Email,
		"is_active":   user.IsActive,
		"is_verified": user.IsVerified,
		"created_at":  user.CreatedAt,
	}
}
