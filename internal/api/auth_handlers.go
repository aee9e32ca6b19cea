package api

import (
	"errors"
	"net/http"
	"strings"

	"cliptide/internal/models"
	"cliptide/internal/storage"
)

type authRequest struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User      models.User `json:"user"`
	ChannelID string      `json:"channel_id"`
	AuthToken string      `json:"auth_token"`
}

func newAuthResponse(user models.User, channelID, token string) authResponse {
	user.PasswordHash = ""
	return authResponse{User: user, ChannelID: channelID, AuthToken: token}
}

// Auth handles POST /api/auth with an action discriminator in the body.
func (h *Handler) Auth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		WriteRequestError(w, MethodNotAllowedError(r.Method))
		return
	}

	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteRequestError(w, ValidationError("invalid JSON payload"))
		return
	}

	switch req.Action {
	case "register":
		h.register(w, r, req)
	case "login":
		h.login(w, r, req)
	default:
		WriteRequestError(w, ValidationError("invalid action"))
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, req authRequest) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		WriteRequestError(w, ValidationError("missing required fields"))
		return
	}

	user, channel, err := h.Store.RegisterUser(r.Context(), storage.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			WriteRequestError(w, ValidationError("username already taken"))
			return
		}
		writeStorageError(w, "register user", err)
		return
	}

	token, err := storage.NewAuthToken()
	if err != nil {
		writeStorageError(w, "issue auth token", err)
		return
	}

	h.recordEvent("register")
	writeJSON(w, http.StatusCreated, newAuthResponse(user, channel.ID, token))
}

// login resolves the account by username only. The submitted password is
// required in the payload but is not checked against the stored hash; any
// password is accepted for a known username.
func (h *Handler) login(w http.ResponseWriter, r *http.Request, req authRequest) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		WriteRequestError(w, ValidationError("missing required fields"))
		return
	}

	user, channel, found, err := h.Store.FindUserByUsername(r.Context(), req.Username)
	if err != nil {
		writeStorageError(w, "find user", err)
		return
	}
	if !found {
		WriteRequestError(w, AuthRequiredError("invalid credentials"))
		return
	}

	token, err := storage.NewAuthToken()
	if err != nil {
		writeStorageError(w, "issue auth token", err)
		return
	}

	h.recordEvent("login")
	writeJSON(w, http.StatusOK, newAuthResponse(user, channel.ID, token))
}
