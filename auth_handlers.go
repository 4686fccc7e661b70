package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go-passport-preview/models"
	"go-passport-preview/validation"

	"golang.org/x/crypto/bcrypt"
)

const (
	MsgTermsRequired      = "You must accept the terms and conditions."
	MsgEmailRegistered    = "Email already registered."
	MsgPasswordMismatch   = "Passwords do not match."
	MsgSignupSuccess      = "Registration successful! Please log in."
	MsgInvalidCredentials = "Invalid email or password."
	MsgWelcome            = "Welcome"
	MsgLoggedOut          = "You have been logged out."
	MsgInvalidRequestBody = "Invalid request body."
)

const ERR_DECODE_AUTH_BODY = "failed to decode auth request"
const ERR_UNKNOWN_LOGGED_IN = "logged in user no longer exists"

func decodeJSONBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func handleSignup(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	var request models.SignupRequest
	if err := decodeJSONBody(r, &request); err != nil {
		slog.Warn(ERR_DECODE_AUTH_BODY, "error", err)
		respondWithMessage(w, http.StatusBadRequest, CategoryDanger, MsgInvalidRequestBody)
		return
	}
	request.Normalize()
	slog.Info("Received signup request", "email", request.Email)

	if !request.Terms {
		respondWithMessage(w, http.StatusBadRequest, CategoryWarning, MsgTermsRequired)
		return
	}

	if err := state.validator.Struct(request); err != nil {
		respondWithValidationErr(w, err)
		return
	}

	_, err := state.users.FindByIdentifier(r.Context(), request.Email)
	if err == nil {
		respondWithMessage(w, http.StatusConflict, CategoryDanger, MsgEmailRegistered)
		return
	}
	if !errors.Is(err, ErrUserNotFound) {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_USER_LOOKUP, err)
		return
	}

	if request.Password != request.ConfirmPassword {
		respondWithMessage(w, http.StatusBadRequest, CategoryDanger, MsgPasswordMismatch)
		return
	}

	if err := validation.CheckPassword(request.Password); err != nil {
		respondWithMessage(w, http.StatusBadRequest, CategoryDanger, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_PASSWORD_HASH, err)
		return
	}

	user := models.User{
		Email:        request.Email,
		FullName:     request.FullName,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	err = state.users.Insert(r.Context(), user)
	if errors.Is(err, ErrUserExists) {
		respondWithMessage(w, http.StatusConflict, CategoryDanger, MsgEmailRegistered)
		return
	}
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_USER_INSERT, err)
		return
	}

	slog.Info("User registered", "email", user.Email)
	respondWithMessage(w, http.StatusCreated, CategorySuccess, MsgSignupSuccess)
}

func handleLogin(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	var request models.LoginRequest
	if err := decodeJSONBody(r, &request); err != nil {
		slog.Warn(ERR_DECODE_AUTH_BODY, "error", err)
		respondWithMessage(w, http.StatusBadRequest, CategoryDanger, MsgInvalidRequestBody)
		return
	}
	request.Normalize()
	slog.Info("Received login request", "email", request.Email, "remember", request.Remember)

	user, err := state.users.FindByIdentifier(r.Context(), request.Email)
	if errors.Is(err, ErrUserNotFound) {
		slog.Debug("Login for unknown user", "email", request.Email)
		respondWithMessage(w, http.StatusUnauthorized, CategoryDanger, MsgInvalidCredentials)
		return
	}
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_USER_LOOKUP, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
		slog.Debug("Login with wrong password", "email", request.Email)
		respondWithMessage(w, http.StatusUnauthorized, CategoryDanger, MsgInvalidCredentials)
		return
	}

	ttl := state.sessionTTL
	if request.Remember {
		ttl = state.rememberTTL
	}

	sessionId := GenerateSessionId()
	if sessionId == "" {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to generate session ID", errors.New("failed to generate session ID"))
		return
	}

	if err := state.sessions.StoreSession(r.Context(), sessionId, user.Email, ttl); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_SESSION_STORE, err)
		return
	}

	token, err := state.tokens.CreateToken(user.Email, sessionId, ttl)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_TOKEN_CREATION, err)
		return
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   state.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if request.Remember {
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)

	slog.Info("User logged in", "email", user.Email, "session_id", sessionId)
	respondWithMessage(w, http.StatusOK, CategorySuccess, MsgWelcome)
}

func handleLogout(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if claims, err := state.tokens.ParseToken(cookie.Value); err == nil {
			err := state.sessions.RemoveSession(r.Context(), claims.SessionId)
			if err != nil && !errors.Is(err, ErrSessionNotFound) {
				slog.Error(ERR_SESSION_REMOVAL, "error", err, "session_id", claims.SessionId)
			} else {
				slog.Info("User logged out", "email", claims.Email, "session_id", claims.SessionId)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   state.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	respondWithMessage(w, http.StatusOK, CategoryInfo, MsgLoggedOut)
}

func handleMe(state *ServerState, w http.ResponseWriter, r *http.Request) {
	email, _ := UserEmailFromContext(r.Context())

	user, err := state.users.FindByIdentifier(r.Context(), email)
	if errors.Is(err, ErrUserNotFound) {
		slog.Warn(ERR_UNKNOWN_LOGGED_IN, "email", email)
		respondWithMessage(w, http.StatusUnauthorized, CategoryWarning, MsgLoginRequired)
		return
	}
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_USER_LOOKUP, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, models.UserResponse{Email: user.Email, FullName: user.FullName}); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}
