package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"purrform/pkg/role"
	"purrform/pkg/session"
	"purrform/pkg/user"
)

type LoginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthHandler struct {
	Service  user.ServiceInterface
	Sessions *session.Manager
	Logger   *slog.Logger
}

func NewAuthHandler(service user.ServiceInterface, sessions *session.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		Service:  service,
		Sessions: sessions,
		Logger:   logger,
	}
}

func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Logger, map[string]string{"page": "home", "login": role.LoginPath})
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Logger, map[string]string{"page": "login"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginForm
	if ok := DecodeJSONBody(w, r, &req); !ok {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, typeMessage, "username and password are required")
		return
	}

	u, err := h.Service.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, user.ErrNotFound), errors.Is(err, user.ErrInvalidCredentials):
		h.Logger.Info("login rejected", "username", req.Username, "reason", err.Error())
		writeError(w, http.StatusUnauthorized, typeMessage, "invalid username or password")
		return
	case errors.Is(err, user.ErrUnknownRole):
		h.Logger.Warn("login with unknown role", "username", req.Username)
		writeError(w, http.StatusForbidden, typeMessage, "account has no dashboard access")
		return
	case err != nil:
		h.Logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "login failed")
		return
	}

	if err := h.Sessions.Bind(w, r).Create(u.Role); err != nil {
		h.Logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "login failed")
		return
	}

	if ok := WriteResp(w, h.Logger, map[string]any{"redirect": u.Role.Landing()}, http.StatusOK); ok {
		h.Logger.Info("login", "user", u.ID, "role", u.Role)
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Bind(w, r).Destroy()
	WriteResp(w, h.Logger, map[string]any{"redirect": role.LoginPath}, http.StatusOK)
}
