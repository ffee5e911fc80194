package auth

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
)

// isLocalPath validates that a redirect path is local to prevent open
// redirect attacks.
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}

	// Must start with /
	if !strings.HasPrefix(path, "/") {
		return false
	}

	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}

	// Reject URLs with schemes
	if strings.Contains(path, "://") {
		return false
	}

	// Reject paths with backslashes (potential bypass attempts)
	if strings.Contains(path, "\\") {
		return false
	}

	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// Controller handles authentication-related HTTP endpoints.
type Controller struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	config         config.Auth
	rateLimiter    *RateLimiter
}

// NewController creates a new authentication controller.
func NewController(service *Service, sessionManager *SessionManager, templatesPath string, cfg config.Auth) (*Controller, error) {
	pattern := filepath.Join(templatesPath, "auth", "*.html")
	tmpl, err := template.ParseGlob(pattern)
	if err != nil {
		// Templates might not exist yet, fall back to JSON responses
		tmpl = nil
	}

	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &Controller{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
		config:         cfg,
		rateLimiter:    rateLimiter,
	}, nil
}

// RegisterRoutes registers authentication routes on the router.
func (ac *Controller) RegisterRoutes(router *gin.Engine) {
	router.GET("/signup", ac.SignupPage)
	router.POST("/signup", ac.Signup)
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout) // Support GET for simple logout links
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *Controller) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// SignupPage renders the registration form.
func (ac *Controller) SignupPage(c *gin.Context) {
	if ac.sessionManager != nil && ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.renderTemplate(c, "signup.html", gin.H{
		"Title":     "Sign Up",
		"CSRFToken": GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// Signup handles the registration form submission and signs the new
// user in immediately.
func (ac *Controller) Signup(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	confirmPassword := c.PostForm("confirm_password")

	if password != confirmPassword {
		ac.renderTemplate(c, "signup.html", gin.H{
			"Title":     "Sign Up",
			"Username":  username,
			"Email":     email,
			"CSRFToken": GetCSRFToken(c),
			"Error":     "Passwords do not match",
		})
		return
	}

	user, err := ac.service.Register(username, email, password)
	if err != nil {
		errorMsg := "Failed to create account"
		switch {
		case errors.Is(err, ErrPasswordTooShort):
			errorMsg = "Password must be at least 12 characters"
		case errors.Is(err, ErrPasswordTooLong):
			errorMsg = "Password exceeds maximum length of 72 characters"
		case errors.Is(err, ErrUsernameRequired):
			errorMsg = "Username is required"
		case errors.Is(err, ErrUsernameInvalid):
			errorMsg = "Username must be 3-64 characters, alphanumeric with underscore/hyphen only"
		case errors.Is(err, ErrEmailRequired):
			errorMsg = "Email is required"
		case errors.Is(err, ErrEmailInvalid):
			errorMsg = "Invalid email format"
		case errors.Is(err, ErrPasswordRequired):
			errorMsg = "Password is required"
		case errors.Is(err, ErrUserExists):
			errorMsg = "A user with that username or email already exists"
		}

		ac.renderTemplate(c, "signup.html", gin.H{
			"Title":     "Sign Up",
			"Username":  username,
			"Email":     email,
			"CSRFToken": GetCSRFToken(c),
			"Error":     errorMsg,
		})
		return
	}

	if ac.sessionManager != nil {
		_ = ac.sessionManager.CreateSession(c.Request, user)
	}

	c.Redirect(http.StatusFound, "/")
}

// LoginPage renders the login form.
func (ac *Controller) LoginPage(c *gin.Context) {
	if ac.sessionManager != nil && ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	next := sanitizeRedirectPath(c.Query("next"))

	ac.renderTemplate(c, "login.html", gin.H{
		"Title":     "Login",
		"Next":      next,
		"CSRFToken": GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// Login handles the login form submission.
func (ac *Controller) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	// Check rate limiting before attempting authentication
	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			ac.renderTemplate(c, "login.html", gin.H{
				"Title":      "Login",
				"Next":       next,
				"Username":   username,
				"CSRFToken":  GetCSRFToken(c),
				"Error":      "Too many login attempts. Please try again later.",
				"RetryAfter": retryAfter.String(),
			})
			return
		}
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, username)
		}

		errorMsg := "Invalid username or password"
		if errors.Is(err, ErrAccountLocked) {
			errorMsg = "Account is locked. Please try again later."
		}

		ac.renderTemplate(c, "login.html", gin.H{
			"Title":     "Login",
			"Next":      next,
			"Username":  username,
			"CSRFToken": GetCSRFToken(c),
			"Error":     errorMsg,
		})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, username)
	}

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			ac.renderTemplate(c, "login.html", gin.H{
				"Title":     "Login",
				"Next":      next,
				"Username":  username,
				"CSRFToken": GetCSRFToken(c),
				"Error":     "Failed to create session",
			})
			return
		}
	}

	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and redirects to login.
func (ac *Controller) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	c.Redirect(http.StatusFound, "/login")
}

// renderTemplate renders an auth template or falls back to JSON.
func (ac *Controller) renderTemplate(c *gin.Context, name string, data gin.H) {
	if ac.templates == nil {
		c.JSON(http.StatusOK, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.String(http.StatusInternalServerError, "Template error: %v", err)
	}
}
