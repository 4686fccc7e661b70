package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-passport-preview/images"
	"go-passport-preview/mrz"
	"go-passport-preview/validation"

	"github.com/stretchr/testify/require"
)

var testConfig = ServerConfig{
	Host:           "localhost",
	Port:           8081,
	UseTls:         false,
	TlsCertPath:    "",
	TlsPrivKeyPath: "",
}

const testBaseURL = "http://localhost:8081"

const (
	testEmail    = "alice@example.com"
	testPassword = "s3cret!pass"
	testFullName = "Alice Example"
)

func newTestState(t *testing.T) *ServerState {
	t.Helper()

	tokens, err := NewHmacSessionTokens("test-secret")
	require.NoError(t, err)
	validator, err := validation.New()
	require.NoError(t, err)

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>preview</html>"), 0o644))

	return &ServerState{
		users:          NewInMemoryUserStorage(),
		sessions:       NewInMemorySessionStorage(),
		tokens:         tokens,
		validator:      validator,
		photos:         images.NewPhotoStore(t.TempDir()),
		mrzGenerator:   mrz.Generator{},
		sessionTTL:     time.Hour,
		rememberTTL:    31 * 24 * time.Hour,
		maxUploadBytes: 1 << 20,
		staticDir:      staticDir,
	}
}

func startTestServer(t *testing.T, state *ServerState) *Server {
	t.Helper()

	srv, err := NewServer(state, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, testBaseURL+"/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})
	return srv
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func readResponse[T any](t *testing.T, resp *http.Response) ([]byte, *T) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var v T
	_ = json.Unmarshal(respBody, &v)
	return respBody, &v
}

func postJSON[T any](t *testing.T, client *http.Client, url string, payload any) (*http.Response, []byte, *T) {
	t.Helper()

	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	}
	resp, err := client.Post(url, "application/json", body)
	require.NoError(t, err)

	respBody, decoded := readResponse[T](t, resp)
	return resp, respBody, decoded
}

func getJSON[T any](t *testing.T, client *http.Client, url string) (*http.Response, []byte, *T) {
	t.Helper()

	resp, err := client.Get(url)
	require.NoError(t, err)

	respBody, decoded := readResponse[T](t, resp)
	return resp, respBody, decoded
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

// request builders

func signupRequest() map[string]any {
	return map[string]any{
		"email":            testEmail,
		"password":         testPassword,
		"confirm_password": testPassword,
		"fullname":         testFullName,
		"terms":            true,
	}
}

type formOpt func(map[string]string)

func withField(name, value string) formOpt {
	return func(fields map[string]string) { fields[name] = value }
}

func withoutField(name string) formOpt {
	return func(fields map[string]string) { delete(fields, name) }
}

func passportFields(opts ...formOpt) map[string]string {
	fields := map[string]string{
		"surname":        "Doe",
		"given_names":    "John Allen",
		"nationality":    "American",
		"gender":         "Male",
		"dob":            "1990-05-21",
		"place_of_birth": "Boston",
		"country_code":   "usa",
		"passport_no":    "AB1234567",
		"issue_date":     "2020-11-03",
		"expiry_date":    "2030-11-02",
		"boarding":       "New York (JFK)",
		"landing":        "London (LHR)",
	}
	for _, o := range opts {
		o(fields)
	}
	return fields
}

type photoPart struct {
	filename string
	data     []byte
}

// multipartBody encodes fields and an optional photo. A nil photo leaves
// the file part out entirely.
func multipartBody(t *testing.T, fields map[string]string, photo *photoPart) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if photo != nil {
		part, err := writer.CreateFormFile(profilePhotoField, photo.filename)
		require.NoError(t, err)
		_, err = part.Write(photo.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testPhoto(t *testing.T) *photoPart {
	return &photoPart{filename: "me.png", data: testPNG(t, 40, 50)}
}
