package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go-passport-preview/images"
	log "go-passport-preview/logging"
	"go-passport-preview/models"
	"go-passport-preview/mrz"
	"go-passport-preview/validation"

	"github.com/gorilla/mux"
)

const ErrorInternal = "error:internal"
const ERR_MARSHAL = "failed to marshal response message"
const ERR_SESSION_STORE = "failed to store session"
const ERR_SESSION_RETRIEVAL = "failed to get session from storage"
const ERR_SESSION_REMOVAL = "failed to remove session from storage"
const ERR_TOKEN_CREATION = "failed to create session token"
const ERR_USER_LOOKUP = "failed to look up user"
const ERR_USER_INSERT = "failed to store user"
const ERR_PASSWORD_HASH = "failed to hash password"
const ERR_PHOTO_STORE = "failed to store profile photo"
const ERR_MRZ_GENERATION = "failed to generate mrz"
const ERR_QR_GENERATION = "failed to generate mrz qr code"

const (
	CategorySuccess = "success"
	CategoryInfo    = "info"
	CategoryWarning = "warning"
	CategoryDanger  = "danger"
)

const (
	MsgLoginRequired   = "Please log in to access this page."
	MsgNoFilePart      = "No file part"
	MsgNoSelectedFile  = "No selected file"
	MsgInvalidFileType = "Invalid file type. Please upload a JPG, JPEG, or PNG file."
	MsgInvalidDate     = "Invalid date format provided."
	MsgInvalidForm     = "Please correct the highlighted fields."
	MsgUploadTooLarge  = "The uploaded file is too large."
)

const sessionCookieName = "session"
const profilePhotoField = "profile_photo"
const qrCodeSize = 256

var cities = []string{
	"New York (JFK)", "London (LHR)", "Paris (CDG)", "Tokyo (HND)",
	"Dubai (DXB)", "Singapore (SIN)", "Hong Kong (HKG)", "Los Angeles (LAX)",
	"Frankfurt (FRA)", "Amsterdam (AMS)", "Istanbul (IST)", "Delhi (DEL)",
	"Mumbai (BOM)", "Sydney (SYD)", "Toronto (YYZ)", "Beijing (PEK)",
}

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	users          UserStorage
	sessions       SessionStorage
	tokens         SessionTokens
	validator      *validation.Validator
	photos         *images.PhotoStore
	mrzGenerator   mrz.Generator
	sessionTTL     time.Duration
	rememberTTL    time.Duration
	maxUploadBytes int64
	staticDir      string
	secureCookies  bool
}

type SpaHandler struct {
	staticPath string
	indexPath  string
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

// ServeHTTP serves the file under the static dir matching the URL path, or
// the index file when there is none, so client side routes keep working.
// https://github.com/gorilla/mux?tab=readme-ov-file#serving-single-page-applications
func (h SpaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Debug("SPA handler serving request", "path", r.URL.Path)
	// Join internally call path.Clean to prevent directory traversal
	path := filepath.Join(h.staticPath, r.URL.Path)
	fi, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && fi.IsDir()) {
		slog.Debug("Serving index.html for path", "path", r.URL.Path)
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	if err != nil {
		slog.Error("Error stating file", "path", path, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Debug("Serving static file", "path", path)
	http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()
	router.Use(logRequests)

	auth := requireLogin(state)

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		err := json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		if err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	})

	router.HandleFunc("/api/signup", func(w http.ResponseWriter, r *http.Request) {
		handleSignup(state, w, r)
	})
	router.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		handleLogin(state, w, r)
	})
	router.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		handleLogout(state, w, r)
	})
	router.Handle("/api/me", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleMe(state, w, r)
	}))).Methods(http.MethodGet)
	router.Handle("/api/cities", auth(http.HandlerFunc(HandleCitiesRequest))).Methods(http.MethodGet)
	router.Handle("/api/generate", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGenerate(state, w, r)
	})))
	router.Handle("/uploads/{file}", auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleUpload(state, w, r)
	}))).Methods(http.MethodGet)

	slog.Debug("Registered all API routes")

	spa := SpaHandler{staticPath: state.staticDir, indexPath: "index.html"}
	router.PathPrefix("/").Handler(spa)

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler: router,
		Addr:    addr,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		// net/http's own errors (TLS handshakes, panics) go through slog too
		ErrorLog: slog.NewLogLogger(log.GetLogger().Handler(), slog.LevelError),
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

// middleware ------------

type contextKey string

const userEmailKey contextKey = "user_email"

func withUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userEmailKey, email)
}

// UserEmailFromContext returns the email of the logged in user, set by
// requireLogin.
func UserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(userEmailKey).(string)
	return email, ok && email != ""
}

// requireLogin accepts a request only when its session cookie holds a valid
// token whose session is still in the session storage.
func requireLogin(state *ServerState) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil {
				slog.Debug("Request without session cookie", "path", r.URL.Path)
				respondWithMessage(w, http.StatusUnauthorized, CategoryWarning, MsgLoginRequired)
				return
			}

			claims, err := state.tokens.ParseToken(cookie.Value)
			if err != nil {
				slog.Debug("Rejected session token", "path", r.URL.Path, "error", err)
				respondWithMessage(w, http.StatusUnauthorized, CategoryWarning, MsgLoginRequired)
				return
			}

			email, err := state.sessions.RetrieveSession(r.Context(), claims.SessionId)
			if errors.Is(err, ErrSessionNotFound) {
				slog.Debug("Session no longer stored", "session_id", claims.SessionId)
				respondWithMessage(w, http.StatusUnauthorized, CategoryWarning, MsgLoginRequired)
				return
			}
			if err != nil {
				respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_SESSION_RETRIEVAL, err)
				return
			}
			if email != claims.Email {
				slog.Warn("Session token does not match stored session", "session_id", claims.SessionId)
				respondWithMessage(w, http.StatusUnauthorized, CategoryWarning, MsgLoginRequired)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUserEmail(r.Context(), email)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("Handled request", "method", r.Method, "path", r.URL.Path, "status_code", rec.status, "duration", time.Since(start))
	})
}

// generate ------------

func passportFormFromRequest(r *http.Request) models.PassportForm {
	return models.PassportForm{
		Surname:      r.FormValue("surname"),
		GivenNames:   r.FormValue("given_names"),
		Nationality:  r.FormValue("nationality"),
		Gender:       r.FormValue("gender"),
		DateOfBirth:  r.FormValue("dob"),
		PlaceOfBirth: r.FormValue("place_of_birth"),
		CountryCode:  r.FormValue("country_code"),
		PassportNo:   r.FormValue("passport_no"),
		IssueDate:    r.FormValue("issue_date"),
		ExpiryDate:   r.FormValue("expiry_date"),
		Boarding:     r.FormValue("boarding"),
		Landing:      r.FormValue("landing"),
	}
}

func handleGenerate(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	email, _ := UserEmailFromContext(r.Context())
	slog.Info("Received request to generate passport preview", "user", email)

	r.Body = http.MaxBytesReader(w, r.Body, state.maxUploadBytes)
	if err := r.ParseMultipartForm(state.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Warn("Upload exceeds limit", "limit", tooLarge.Limit)
			respondWithMessage(w, http.StatusRequestEntityTooLarge, CategoryDanger, MsgUploadTooLarge)
			return
		}
		slog.Warn("Failed to parse multipart form", "error", err)
		respondWithMessage(w, http.StatusBadRequest, CategoryWarning, MsgNoFilePart)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Error("failed to remove multipart temp files", "error", err)
		}
	}()

	photo, filename, ok := readProfilePhoto(w, r)
	if !ok {
		return
	}

	form := passportFormFromRequest(r)
	form.Normalize()
	if err := state.validator.Struct(form); err != nil {
		respondWithValidationErr(w, err)
		return
	}

	dates, err := form.ParseDates()
	if err != nil {
		slog.Debug("Invalid form date", "error", err)
		respondWithMessage(w, http.StatusBadRequest, CategoryDanger, MsgInvalidDate)
		return
	}

	lines, err := state.mrzGenerator.Generate(form.MrzInput(dates))
	if errors.Is(err, mrz.ErrInvalidInput) {
		slog.Debug("Form rejected by mrz generator", "error", err)
		respondWithDetails(w, http.StatusBadRequest, CategoryDanger, MsgInvalidForm, []string{err.Error()})
		return
	}
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MRZ_GENERATION, err)
		return
	}

	machineRead, err := mrz.Parse(lines)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MRZ_GENERATION, err)
		return
	}

	qr, err := mrz.QRCode(lines, qrCodeSize)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_QR_GENERATION, err)
		return
	}

	storedName, err := state.photos.Save(filename, photo)
	if errors.Is(err, images.ErrInvalidImage) {
		slog.Warn("Uploaded photo could not be decoded", "filename", filename, "error", err)
		respondWithMessage(w, http.StatusBadRequest, CategoryDanger, MsgInvalidFileType)
		return
	}
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_PHOTO_STORE, err)
		return
	}

	response := models.PreviewResponse{
		Data:         form,
		DateOfBirth:  dates.DateOfBirth.Format(time.DateOnly),
		IssueDate:    dates.IssueDate.Format(time.DateOnly),
		DateOfExpiry: dates.DateOfExpiry.Format(time.DateOnly),
		PhotoURL:     "/uploads/" + storedName,
		MrzLines:     lines[:],
		MachineRead:  machineRead,
		MrzQRCode:    base64.StdEncoding.EncodeToString(qr),
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Passport preview generated successfully", "user", email)
}

// readProfilePhoto reads the uploaded photo. A part without a filename ends
// up in the form values rather than the files, which is how an empty file
// input is told apart from a missing one.
func readProfilePhoto(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	headers := r.MultipartForm.File[profilePhotoField]
	if len(headers) == 0 {
		if _, ok := r.MultipartForm.Value[profilePhotoField]; ok {
			respondWithMessage(w, http.StatusBadRequest, CategoryWarning, MsgNoSelectedFile)
		} else {
			respondWithMessage(w, http.StatusBadRequest, CategoryWarning, MsgNoFilePart)
		}
		return nil, "", false
	}

	header := headers[0]
	if !images.AllowedFile(header.Filename) {
		slog.Debug("Rejected photo extension", "filename", header.Filename)
		respondWithMessage(w, http.StatusBadRequest, CategoryDanger, MsgInvalidFileType)
		return nil, "", false
	}

	file, err := header.Open()
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to open uploaded photo", err)
		return nil, "", false
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close uploaded photo", "error", err)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to read uploaded photo", err)
		return nil, "", false
	}
	return data, header.Filename, true
}

func handleUpload(state *ServerState, w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["file"]
	path, ok := state.photos.Path(name)
	if !ok {
		slog.Debug("Rejected upload name", "name", name)
		http.NotFound(w, r)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, path)
}

var citiesJson = func() []byte {
	b, err := json.Marshal(map[string][]string{"cities": cities})
	if err != nil {
		panic(err)
	}
	return b
}()

func HandleCitiesRequest(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Serving cities")
	writeStaticJSON(w, citiesJson)
}

func GenerateSessionId() string {
	sessionId := make([]byte, 16)
	if _, err := rand.Read(sessionId); err != nil {
		slog.Error("failed to generate session ID", "error", err)
		return ""
	}
	hexId := fmt.Sprintf("%x", sessionId)
	slog.Debug("Session ID generated successfully", "session_id", hexId)
	return hexId
}

// GenerateNonce Generates a random nonce
func GenerateNonce(i int) (string, error) {
	nonce := make([]byte, i)
	if _, err := rand.Read(nonce); err != nil {
		slog.Error("failed to generate nonce", "error", err)
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	hexString := hex.EncodeToString(nonce)
	slog.Debug("Nonce generated successfully", "length", i)
	return hexString, nil
}

func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	slog.Error(logMsg, "error", e, "status_code", code, "response_body", responseBody)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(responseBody)); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// respondWithMessage writes a user facing message. Success and info
// categories go in the message field, the others in the error field.
func respondWithMessage(w http.ResponseWriter, code int, category, message string) {
	respondWithDetails(w, code, category, message, nil)
}

func respondWithDetails(w http.ResponseWriter, code int, category, message string, details []string) {
	response := models.MessageResponse{Category: category, Details: details}
	if category == CategorySuccess || category == CategoryInfo {
		response.Message = message
	} else {
		response.Error = message
		slog.Debug("Responding with user error", "status_code", code, "category", category, "message", message)
	}
	if err := writeJSON(w, code, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

func respondWithValidationErr(w http.ResponseWriter, err error) {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		respondWithDetails(w, http.StatusBadRequest, CategoryDanger, MsgInvalidForm, fieldErrs)
		return
	}
	respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to validate request", err)
}

// helpers ------------

func writeStaticJSON(w http.ResponseWriter, b []byte) {
	slog.Debug("Writing static JSON", "size", len(b))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write(b); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("Static JSON written successfully", "size", len(b))
	}
}

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}

}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		respondWithErr(w, http.StatusMethodNotAllowed, "method not allowed", "invalid method", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("JSON response written successfully", "status_code", status, "payload_size", len(payload))
	}
	return nil
}
