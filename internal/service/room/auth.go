package room

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sharetube/watchparty/internal/repository/room"
)

const guestIdPrefix = "guest-"

// CredentialClaims is the payload of a credential issued by the identity
// provider and signed with the shared secret.
type CredentialClaims struct {
	UserId    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarUrl string `json:"avatar_url"`
	jwt.RegisteredClaims
}

type AuthenticateParams struct {
	SessionToken string
	Credential   string
	Username     string
	AvatarUrl    string
}

type AuthenticateResponse struct {
	Identity     Identity
	SessionToken string
}

// Authenticate resolves the handshake. A known session token wins, then a
// signed credential, and otherwise a guest identity is minted.
func (s *service) Authenticate(ctx context.Context, params *AuthenticateParams) (AuthenticateResponse, error) {
	if params.SessionToken != "" {
		return s.resumeSession(ctx, params.SessionToken)
	}

	var identity Identity
	if params.Credential != "" {
		claims, err := s.parseCredential(params.Credential)
		if err != nil {
			s.logger.InfoContext(ctx, "invalid credential", "error", err)
			return AuthenticateResponse{}, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
		}

		name := claims.Username
		if name == "" {
			name = claims.UserId
		}

		identity = Identity{
			Id:        claims.UserId,
			Name:      name,
			AvatarUrl: claims.AvatarUrl,
		}
	} else {
		if err := validateUsername(params.Username); err != nil {
			return AuthenticateResponse{}, fmt.Errorf("%w: username: %w", ErrNotAuthenticated, err)
		}

		identity = Identity{
			Id:        guestIdPrefix + uuid.NewString(),
			Name:      strings.TrimSpace(params.Username),
			AvatarUrl: params.AvatarUrl,
			IsGuest:   true,
		}
	}

	token := uuid.NewString()
	if err := s.roomRepo.SetSession(ctx, &room.SetSessionParams{
		Token: token,
		Session: room.Session{
			ParticipantId: identity.Id,
			Name:          identity.Name,
			AvatarUrl:     identity.AvatarUrl,
			IsGuest:       identity.IsGuest,
		},
		Exp: s.cfg.SessionExp,
	}); err != nil {
		return AuthenticateResponse{}, fmt.Errorf("failed to set session: %w", err)
	}

	return AuthenticateResponse{
		Identity:     identity,
		SessionToken: token,
	}, nil
}

func (s *service) resumeSession(ctx context.Context, token string) (AuthenticateResponse, error) {
	session, err := s.roomRepo.GetSession(ctx, token)
	if errors.Is(err, room.ErrSessionNotFound) {
		return AuthenticateResponse{}, fmt.Errorf("%w: session expired", ErrNotAuthenticated)
	}
	if err != nil {
		return AuthenticateResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	if err := s.roomRepo.ExpireSession(ctx, token, s.cfg.SessionExp); err != nil {
		s.logger.InfoContext(ctx, "failed to refresh session", "error", err)
	}

	return AuthenticateResponse{
		Identity: Identity{
			Id:        session.ParticipantId,
			Name:      session.Name,
			AvatarUrl: session.AvatarUrl,
			IsGuest:   session.IsGuest,
		},
		SessionToken: token,
	}, nil
}

func (s *service) parseCredential(credential string) (*CredentialClaims, error) {
	claims := &CredentialClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("token is invalid")
	}

	if claims.UserId == "" || strings.HasPrefix(claims.UserId, guestIdPrefix) {
		return nil, errors.New("user_id claim is invalid")
	}

	return claims, nil
}
