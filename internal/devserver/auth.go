package devserver

import (
	"net/http"
	"strings"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/google/uuid"
)

func (s *Server) issue(username string) map[string]string {
	access, refresh := uuid.NewString(), uuid.NewString()
	s.st.access[access] = session{username: username, expires: s.now().Add(s.accessTTL)}
	s.st.refresh[refresh] = username
	return map[string]string{"access": access, "refresh": refresh, "username": username}
}

func (s *Server) login(c Context) error {
	var in auth.LoginInput
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pass, ok := s.st.users[in.Username]
	if !ok || pass != in.Password {
		return c.Error(http.StatusUnauthorized, "No active account found with the given credentials")
	}
	c.L.Info().Str("username", in.Username).Msg("login")
	return c.OK(s.issue(in.Username))
}

// register answers with tokens wrapped in a data envelope.
func (s *Server) register(c Context) error {
	var in auth.RegisterInput
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}

	fields := map[string][]string{}
	if strings.TrimSpace(in.Username) == "" {
		fields["username"] = []string{"This field is required."}
	}
	if len(in.Password) < 8 {
		fields["password"] = []string{"Ensure this field has at least 8 characters."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.st.users[in.Username]; taken {
		fields["username"] = append(fields["username"], "A user with that username already exists.")
	}
	if len(fields) > 0 {
		return c.JSON(http.StatusBadRequest, fields)
	}

	s.st.users[in.Username] = in.Password
	tokens := s.issue(in.Username)
	return c.Created(map[string]any{
		"data": map[string]any{
			"access_token":  tokens["access"],
			"refresh_token": tokens["refresh"],
			"user":          map[string]string{"username": in.Username},
		},
	})
}

func (s *Server) refresh(c Context) error {
	var in struct {
		Refresh string `json:"refresh"`
	}
	if err := c.Decode(&in); err != nil {
		return c.BadRequest("invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.st.refresh[in.Refresh]
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
	}
	access := uuid.NewString()
	s.st.access[access] = session{username: username, expires: s.now().Add(s.accessTTL)}
	return c.OK(map[string]string{"access": access})
}
