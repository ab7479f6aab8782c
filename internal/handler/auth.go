package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medibook/doctor-appointment-booking/internal/model"
	"github.com/medibook/doctor-appointment-booking/internal/repository"
	"github.com/medibook/doctor-appointment-booking/internal/utils"
)

// AuthHandler serves patient registration and login.
type AuthHandler struct {
	users      *repository.UserRepo
	jwtSecret  string
	ttlMin     int
	bcryptCost int
	log        zerolog.Logger
}

// NewAuthHandler wires the auth endpoints.
func NewAuthHandler(users *repository.UserRepo, jwtSecret string, ttlMin, bcryptCost int, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, ttlMin: ttlMin, bcryptCost: bcryptCost, log: log}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type userResponse struct {
	PublicID string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Register creates a patient account.  Duplicate emails are reported by
// the unique index, not a prior lookup, so two concurrent registrations
// cannot both succeed.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return respondErr(c, http.StatusBadRequest, "name, email and password are required")
	}
	if len(req.Password) < 6 {
		return respondErr(c, http.StatusBadRequest, "password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		h.log.Error().Err(err).Msg("hash password failed")
		return respondErr(c, http.StatusInternalServerError, "registration failed")
	}

	u := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
	}
	if err := h.users.Create(c.Request().Context(), u); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return respondErr(c, http.StatusConflict, "email already registered")
		}
		h.log.Error().Err(err).Msg("create user failed")
		return respondErr(c, http.StatusInternalServerError, "registration failed")
	}

	return respondOK(c, http.StatusCreated, "registered", userResponse{
		PublicID: u.PublicID,
		Name:     u.Name,
		Email:    u.Email,
		Phone:    u.Phone,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues an access token.  Unknown email
// and wrong password return the same message so the endpoint does not
// leak which accounts exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return respondErr(c, http.StatusBadRequest, "email and password are required")
	}

	u, err := h.users.GetByEmail(c.Request().Context(), req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return respondErr(c, http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		h.log.Error().Err(err).Msg("load user failed")
		return respondErr(c, http.StatusInternalServerError, "login failed")
	}
	if err := utils.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return respondErr(c, http.StatusUnauthorized, "invalid email or password")
	}

	tok, err := utils.NewAccessToken(h.jwtSecret, u.ID, h.ttlMin)
	if err != nil {
		h.log.Error().Err(err).Msg("sign token failed")
		return respondErr(c, http.StatusInternalServerError, "login failed")
	}

	return respondOK(c, http.StatusOK, "logged in", echo.Map{
		"token":      tok.Token,
		"expires_at": tok.Exp,
		"user": userResponse{
			PublicID: u.PublicID,
			Name:     u.Name,
			Email:    u.Email,
			Phone:    u.Phone,
		},
	})
}
