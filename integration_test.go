package main

import (
	"context"
	"image/png"
	"net/http"
	"testing"

	"go-passport-preview/models"

	"github.com/stretchr/testify/require"
)

func TestPreviewFlow_SignupLoginGenerateLogout(t *testing.T) {
	state := newTestState(t)
	startTestServer(t, state)
	client := newTestClient(t)

	resp, body, msg := postJSON[models.MessageResponse](t, client, testBaseURL+"/api/signup", signupRequest())
	mustStatus(t, resp, http.StatusCreated, body)
	require.Equal(t, MsgSignupSuccess, msg.Message)

	resp, body, msg = postJSON[models.MessageResponse](t, client, testBaseURL+"/api/login",
		models.LoginRequest{Email: " Alice@Example.com ", Password: testPassword})
	mustStatus(t, resp, http.StatusOK, body)
	require.Equal(t, MsgWelcome, msg.Message)

	resp, body, me := getJSON[models.UserResponse](t, client, testBaseURL+"/api/me")
	mustStatus(t, resp, http.StatusOK, body)
	require.Equal(t, models.UserResponse{Email: testEmail, FullName: testFullName}, *me)

	resp, body, cityList := getJSON[map[string][]string](t, client, testBaseURL+"/api/cities")
	mustStatus(t, resp, http.StatusOK, body)
	require.Len(t, (*cityList)["cities"], 16)

	form, contentType := multipartBody(t, passportFields(), testPhoto(t))
	resp, err := client.Post(testBaseURL+"/api/generate", contentType, form)
	require.NoError(t, err)
	body, preview := readResponse[models.PreviewResponse](t, resp)
	mustStatus(t, resp, http.StatusOK, body)
	require.Equal(t, []string{
		"P<USADOE<<JOHN<ALLEN<<<<<<<<<<<<<<<<<<<<<<<<",
		"AB1234567<1USA9005211M3011026<<<<<<<<<<<<<<0",
	}, preview.MrzLines)

	photoResp, err := client.Get(testBaseURL + preview.PhotoURL)
	require.NoError(t, err)
	defer func() { _ = photoResp.Body.Close() }()
	require.Equal(t, http.StatusOK, photoResp.StatusCode)
	_, err = png.Decode(photoResp.Body)
	require.NoError(t, err)

	resp, body, msg = postJSON[models.MessageResponse](t, client, testBaseURL+"/api/logout", nil)
	mustStatus(t, resp, http.StatusOK, body)
	require.Equal(t, MsgLoggedOut, msg.Message)

	resp, body, msg = getJSON[models.MessageResponse](t, client, testBaseURL+"/api/me")
	mustStatus(t, resp, http.StatusUnauthorized, body)
	require.Equal(t, MsgLoginRequired, msg.Error)
}

func TestPreviewFlow_RequiresLogin(t *testing.T) {
	startTestServer(t, newTestState(t))
	client := newTestClient(t)

	for _, path := range []string{"/api/me", "/api/cities", "/uploads/photo.png"} {
		resp, body, msg := getJSON[models.MessageResponse](t, client, testBaseURL+path)
		mustStatus(t, resp, http.StatusUnauthorized, body)
		require.Equal(t, MsgLoginRequired, msg.Error)
		require.Equal(t, CategoryWarning, msg.Category)
	}

	form, contentType := multipartBody(t, passportFields(), testPhoto(t))
	resp, err := client.Post(testBaseURL+"/api/generate", contentType, form)
	require.NoError(t, err)
	body, _ := readResponse[models.MessageResponse](t, resp)
	mustStatus(t, resp, http.StatusUnauthorized, body)
}

func TestPreviewFlow_SessionRemovedServerSide(t *testing.T) {
	state := newTestState(t)
	startTestServer(t, state)
	client := newTestClient(t)

	resp, body, _ := postJSON[models.MessageResponse](t, client, testBaseURL+"/api/signup", signupRequest())
	mustStatus(t, resp, http.StatusCreated, body)
	resp, body, _ = postJSON[models.MessageResponse](t, client, testBaseURL+"/api/login",
		models.LoginRequest{Email: testEmail, Password: testPassword})
	mustStatus(t, resp, http.StatusOK, body)

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)
	claims, err := state.tokens.ParseToken(token)
	require.NoError(t, err)
	require.NoError(t, state.sessions.RemoveSession(context.Background(), claims.SessionId))

	resp, body, _ = getJSON[models.MessageResponse](t, client, testBaseURL+"/api/me")
	mustStatus(t, resp, http.StatusUnauthorized, body)
}

func TestPreviewFlow_SpaFallback(t *testing.T) {
	startTestServer(t, newTestState(t))
	client := newTestClient(t)

	resp, err := client.Get(testBaseURL + "/some/client/route")
	require.NoError(t, err)
	body, _ := readResponse[struct{}](t, resp)
	mustStatus(t, resp, http.StatusOK, body)
	require.Contains(t, string(body), "preview")
}
