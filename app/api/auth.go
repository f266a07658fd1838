package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionCookie    = "feed_session"
	sessionMaxAge    = 7 * 24 * 60 * 60
	passwordSalt     = "feed-viewer-salt"
	workspaceKey     = "workspace"
	defaultWorkspace = "api"
)

const loginPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Login - Feed Curator</title>
</head>
<body>
<h1>Feed Curator</h1>
<p>Enter the team password to continue</p>
{{ERROR}}
<form method="POST" action="/login">
<label for="password">Password</label>
<input type="password" id="password" name="password" required autofocus>
<button type="submit">Sign In</button>
</form>
</body>
</html>
`

// Gate checks the shared site password. A session cookie is valid when it
// starts with the password fingerprint, so changing the password logs
// everyone out.
type Gate struct {
	password     string
	apiAccessKey string
	prefix       string
}

func NewGate(password, apiAccessKey string) *Gate {
	return &Gate{
		password:     password,
		apiAccessKey: apiAccessKey,
		prefix:       passwordPrefix(password),
	}
}

func passwordPrefix(password string) string {
	sum := sha256.Sum256([]byte(password + passwordSalt))
	return hex.EncodeToString(sum[:])[:16]
}

func (g *Gate) newToken() string {
	return g.prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (g *Gate) validToken(token string) bool {
	if len(token) <= len(g.prefix) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token[:len(g.prefix)]), []byte(g.prefix)) == 1
}

func (g *Gate) validAPIKey(c *gin.Context) bool {
	if g.apiAccessKey == "" {
		return false
	}

	providedKey := c.GetHeader("X-API-Key")
	if providedKey == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			providedKey = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	return providedKey != "" && subtle.ConstantTimeCompare([]byte(providedKey), []byte(g.apiAccessKey)) == 1
}

// Middleware admits requests with a valid session cookie or API key and
// stores the workspace token on the context.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(sessionCookie); err == nil && g.validToken(token) {
			c.Set(workspaceKey, token)
			c.Next()
			return
		}

		if g.validAPIKey(c) {
			workspace := c.GetHeader("X-Workspace-ID")
			if workspace == "" {
				workspace = defaultWorkspace
			}
			c.Set(workspaceKey, workspace)
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Authentication required",
			"message": "Log in at /login or provide an API key in X-API-Key header or Authorization: Bearer <key>",
		})
		c.Abort()
	}
}

func (g *Gate) LoginPage(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil && g.validToken(token) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	renderLogin(c, http.StatusOK, "")
}

func (g *Gate) Login(c *gin.Context) {
	password := c.PostForm("password")
	if subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) != 1 {
		renderLogin(c, http.StatusUnauthorized, `<div class="error">Incorrect password. Please try again.</div>`)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sessionCookie, g.newToken(), sessionMaxAge, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, "/")
}

func (g *Gate) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, "/")
}

func renderLogin(c *gin.Context, status int, errorHTML string) {
	page := strings.Replace(loginPage, "{{ERROR}}", errorHTML, 1)
	c.Data(status, "text/html; charset=utf-8", []byte(page))
}

func workspaceToken(c *gin.Context) string {
	if token := c.GetString(workspaceKey); token != "" {
		return token
	}
	return defaultWorkspace
}
