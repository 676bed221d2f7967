package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"watchparty/core"
	"watchparty/stores"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

var (
	jwtSecret         []byte
	githubOauthConfig *oauth2.Config
	adminEmails       map[string]bool
)

// AppClaims represents the custom claims for the JWT. Subject is the user
// id.
type AppClaims struct {
	jwt.RegisteredClaims
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

// InitAuth reads the signing secret and the optional GitHub OAuth provider
// from the environment. Password auth always works; GitHub login is an extra
// provider when configured.
func InitAuth() {
	jwtSecret = []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logrus.Warn("JWT_SECRET is not set. Authentication will not work.")
	}

	adminEmails = make(map[string]bool)
	for _, email := range strings.Split(os.Getenv("ADMIN_EMAILS"), ",") {
		if email = strings.TrimSpace(strings.ToLower(email)); email != "" {
			adminEmails[email] = true
		}
	}

	if os.Getenv("GITHUB_CLIENT_ID") != "" && os.Getenv("GITHUB_CLIENT_SECRET") != "" {
		logrus.Info("Initializing GitHub authentication provider.")
		githubOauthConfig = &oauth2.Config{
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GITHUB_REDIRECT_URL"),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}
	}
}

type (
	signupRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	authResponse struct {
		Token string     `json:"token"`
		User  *core.User `json:"user"`
	}
)

// HandleSignup registers an account and returns a fresh token so the client
// is logged in immediately.
func HandleSignup(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || strings.TrimSpace(req.Name) == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Name and email are required"})
			return
		}
		if len(req.Password) < 6 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Password must be at least 6 characters"})
			return
		}
		if _, err := store.FindUserByEmail(r.Context(), req.Email); err == nil {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, map[string]string{"error": "Email already registered"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithError(err).Error("Failed to hash password")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create account"})
			return
		}

		user := &core.User{
			ID:           ulid.Make().String(),
			Name:         strings.TrimSpace(req.Name),
			Email:        req.Email,
			PasswordHash: string(hash),
			IsAdmin:      adminEmails[req.Email],
			CreatedAt:    time.Now(),
		}
		if err := store.CreateUser(r.Context(), user); err != nil {
			logrus.WithError(err).WithField("email", req.Email).Error("Failed to create user")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create account"})
			return
		}

		token, err := CreateJWT(user)
		if err != nil {
			logrus.WithError(err).Error("Failed to create JWT")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create token"})
			return
		}

		logrus.WithField("user_id", user.ID).Info("Account registered")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, authResponse{Token: token, User: user})
	}
}

// HandleLogin authenticates by email and password.
func HandleLogin(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		user, err := store.FindUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Invalid email or password"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Invalid email or password"})
			return
		}

		token, err := CreateJWT(user)
		if err != nil {
			logrus.WithError(err).Error("Failed to create JWT")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create token"})
			return
		}

		render.JSON(w, r, authResponse{Token: token, User: user})
	}
}

func generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	cookie := &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
	}
	http.SetCookie(w, cookie)
	return state
}

// HandleGitHubLogin starts the optional GitHub OAuth flow.
func HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if githubOauthConfig == nil {
		http.Error(w, "GitHub OAuth is not configured", http.StatusInternalServerError)
		return
	}
	state := generateStateOauthCookie(w)
	url := githubOauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// HandleGitHubCallback exchanges the code, upserts the account and redirects
// to the frontend with a token.
func HandleGitHubCallback(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if githubOauthConfig == nil {
			http.Error(w, "GitHub OAuth is not configured", http.StatusInternalServerError)
			return
		}

		token, err := githubOauthConfig.Exchange(context.Background(), r.FormValue("code"))
		if err != nil {
			logrus.Errorf("failed to exchange token: %s", err.Error())
			http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
			return
		}

		client := githubOauthConfig.Client(context.Background(), token)
		resp, err := client.Get("https://api.github.com/user")
		if err != nil {
			logrus.Errorf("failed to get user from github: %s", err.Error())
			http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			logrus.Errorf("failed to read github response body: %s", err.Error())
			http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
			return
		}

		var githubUser struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.Unmarshal(body, &githubUser); err != nil {
			logrus.Errorf("failed to unmarshal github user: %s", err.Error())
			http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
			return
		}

		email := strings.ToLower(githubUser.Email)
		if email == "" {
			email = fmt.Sprintf("github-%d@users.noreply.github.com", githubUser.ID)
		}
		user, err := store.FindUserByEmail(r.Context(), email)
		if errors.Is(err, core.ErrNotFound) {
			name := githubUser.Name
			if name == "" {
				name = githubUser.Login
			}
			user = &core.User{
				ID:        ulid.Make().String(),
				Name:      name,
				Email:     email,
				IsAdmin:   adminEmails[email],
				CreatedAt: time.Now(),
			}
			if err := store.CreateUser(r.Context(), user); err != nil {
				logrus.Errorf("failed to create github user: %s", err.Error())
				http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
				return
			}
		} else if err != nil {
			logrus.Errorf("failed to look up github user: %s", err.Error())
			http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
			return
		}

		jwtToken, err := CreateJWT(user)
		if err != nil {
			logrus.Errorf("failed to create JWT: %s", err.Error())
			http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
			return
		}

		http.Redirect(w, r, fmt.Sprintf("/?token=%s", jwtToken), http.StatusTemporaryRedirect)
	}
}

// CreateJWT issues a signed token for a user.
func CreateJWT(user *core.User) (string, error) {
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * 7)), // 1 week
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseJWT validates a token and returns its claims.
func ParseJWT(tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
