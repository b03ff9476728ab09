package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// reservedUsernames are first path segments the router serves itself. A
// GitHub login equal to one of them still signs in, but its profile at
// /{username}/ is shadowed by the static route.
var reservedUsernames = map[string]bool{
	"admin":  true,
	"auth":   true,
	"follow": true,
	"group":  true,
	"media":  true,
	"new":    true,
}

// ReservedUsername reports whether username collides with a static route.
func ReservedUsername(username string) bool {
	return reservedUsernames[username]
}

// AuthService turns an external GitHub identity into a blog user and an
// identity token.
//
//	AuthHandler → AuthService → UserRepository
//	                          ↘ TokenService
//
// The GitHub login is the public username every profile and post URL is
// built from, so a rename on GitHub moves the user's URLs with it.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// Session is a signed-in user and the token that identifies them.
type Session struct {
	User  *model.User
	Token string
}

// SignInWithGitHub creates the user on first sign-in (keyed by GitHub ID)
// or refreshes username, email and avatar on later ones, then issues a
// token whose subject is the internal user ID.
//
// A login already held by a different GitHub account is
// apperror.ErrConflict; the old holder keeps it until they sign in again
// under their new name.
func (s *AuthService) SignInWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*Session, error) {
	if gh == nil {
		return nil, errors.New("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:  gh.ID,
		Username:  gh.Login,
		Email:     gh.Email,
		AvatarURL: gh.AvatarURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Warn("sign-in refused: username taken",
				slog.Int64("githubID", gh.ID),
				slog.String("username", gh.Login),
			)
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: saving user (githubID=%d): %w", gh.ID, err)
	}

	if ReservedUsername(user.Username) {
		s.logger.Warn("username shadowed by a static route; profile is unreachable",
			slog.String("userID", user.ID),
			slog.String("username", user.Username),
		)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}

	s.logger.Info("user signed in",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return &Session{User: user, Token: token}, nil
}

// CurrentUser loads the acting user. An empty ID is an anonymous caller.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("loading the current user")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading user %s: %w", userID, err)
	}
	return user, nil
}
