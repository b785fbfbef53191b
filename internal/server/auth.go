package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/llehouerou/vibeflow/internal/account"
	"github.com/llehouerou/vibeflow/internal/errmsg"
)

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type userResponse struct {
	User *account.Account `json:"user"`
}

func (s *Server) signup(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "All fields are required")
		return
	}

	acct, err := s.accounts.Signup(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.respondError(c, errmsg.OpSignup, err)
		return
	}
	if !s.startSession(c, acct.ID) {
		return
	}
	s.logger.Info("account created", "id", acct.ID)
	c.JSON(http.StatusOK, userResponse{User: &acct})
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	acct, err := s.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, errmsg.OpLogin, err)
		return
	}
	if !s.startSession(c, acct.ID) {
		return
	}
	c.JSON(http.StatusOK, userResponse{User: &acct})
}

func (s *Server) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", s.opts.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// me returns the logged-in user, or null without failing.
func (s *Server) me(c *gin.Context) {
	id, ok := s.sessionAccount(c)
	if !ok {
		c.JSON(http.StatusOK, userResponse{})
		return
	}
	acct, err := s.accounts.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusOK, userResponse{})
		return
	}
	c.JSON(http.StatusOK, userResponse{User: &acct})
}

// startSession issues a token and sets the session cookie.
func (s *Server) startSession(c *gin.Context, id int64) bool {
	token, expires, err := s.accounts.IssueToken(id)
	if err != nil {
		s.respondError(c, errmsg.OpLogin, err)
		return false
	}
	maxAge := int(time.Until(expires).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", s.opts.SecureCookie, true)
	return true
}
