package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/averho/banter/internal/auth"
	"github.com/averho/banter/internal/middleware"
	"github.com/averho/banter/internal/models"
	"github.com/averho/banter/internal/store"
)

type AuthHandler struct {
	Store    store.Store
	Signer   *auth.Signer
	Validate *validator.Validate
	Logger   *slog.Logger
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "All fields are required: username (3+ chars), email, password (6+ chars)")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &models.User{Username: req.Username, Email: req.Email, Password: string(hashed)}
	if err := h.Store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondError(w, http.StatusBadRequest, "Username or email already exists")
			return
		}
		h.Logger.Error("creating user", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user_id": user.ID,
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.Store.GetUserByUsername(req.Username)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    h.Signer.Sign(strconv.Itoa(user.ID)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.Logger.Info("user logged in", "user", user.Username)
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    user,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   auth.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// CheckAuth reports whether the request carries a valid session. It is not
// behind the auth middleware so it can answer 401 with a body instead of a
// bare error.
func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	unauthenticated := func() {
		respondJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
	}

	cookie, err := r.Cookie(auth.CookieName)
	if err != nil {
		unauthenticated()
		return
	}
	value, err := h.Signer.Verify(cookie.Value)
	if err != nil {
		unauthenticated()
		return
	}
	userID, err := strconv.Atoi(value)
	if err != nil {
		unauthenticated()
		return
	}

	user, err := h.Store.GetUserByID(userID)
	if err != nil {
		unauthenticated()
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

// GetUsers lists everyone except the caller.
func (h *AuthHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.GetUsers(middleware.UserID(r))
	if err != nil {
		h.Logger.Error("listing users", "error", err)
		respondError(w, storeStatus(err), "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, users)
}
