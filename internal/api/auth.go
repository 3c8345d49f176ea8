package api

import (
	"net/http"
	"strings"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/common/validation"
	"studentservices-api/internal/models"
	"studentservices-api/internal/users"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.bind(c, loginSchema, &body) {
		return
	}
	result, err := s.deps.Auth.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.deps.Auth.Logout(c.Request.Context(), tokenInfo(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (s *Server) handleProfile(c *gin.Context) {
	u, err := s.deps.Users.Get(c.Request.Context(), tokenInfo(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var in users.ProfileUpdate
	if !s.bind(c, profileSchema, &in) {
		return
	}
	if in.Email != nil && !validation.ValidateEmail(strings.TrimSpace(*in.Email)) {
		s.fail(c, apperrors.NewFieldError("email", "Enter a valid email address."))
		return
	}
	u, err := s.deps.Users.UpdateProfile(c.Request.Context(), tokenInfo(c).UserID, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) handleListUsers(c *gin.Context) {
	staffOnly := true
	if v := boolQuery(c, "is_staff"); v != nil {
		staffOnly = *v
	}
	list, err := s.deps.Users.List(c.Request.Context(), staffOnly, c.Query("search"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// handleWorkload reports open and finished assignment counts per staff member.
func (s *Server) handleWorkload(c *gin.Context) {
	ctx := c.Request.Context()
	staff, err := s.deps.Users.List(ctx, true, "")
	if err != nil {
		s.fail(c, err)
		return
	}
	today := s.now()
	out := make([]*models.Workload, 0, len(staff))
	for _, u := range staff {
		if !u.IsActive {
			continue
		}
		w, err := s.deps.Users.Workload(ctx, u.ID, today)
		if err != nil {
			s.fail(c, err)
			return
		}
		out = append(out, w)
	}
	c.JSON(http.StatusOK, out)
}
