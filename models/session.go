package models

import (
	"context"
	"sync"
	"time"

	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/utils"
)

/*
caches:
	Session:$token       resolved profile for one sign-in
	Tokens:$profileId    every live token of a profile
*/

// Session is resolved once at sign-in and cached for its lifetime, so role
// lookups never hit the database per request.
type Session struct {
	Token     string   `json:"token"`
	ProfileId string   `json:"profile_id"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	FullName  string   `json:"full_name"`
}

func (s Session) IsAdmin() bool {
	return s.Role == UserRoleAdmin
}

// WithContext attaches the session actor to ctx.
func (s Session) WithContext(ctx context.Context) context.Context {
	ctx = utils.SetTokenInContext(ctx, s.Token)
	return utils.SetActorInContext(ctx, s.ProfileId, s.Email, string(s.Role))
}

// used only while redis is not connected (local runs, unit tests)
var localSessions sync.Map

func sessionKey(token string) string {
	return "Session:" + token
}

func tokensKey(profileId string) string {
	return "Tokens:" + profileId
}

func storeSession(s Session) error {
	if config.GetRedisDB() == nil {
		localSessions.Store(s.Token, s)
		return nil
	}
	lifespan := utils.TokenLifespan()
	// add new token to the profile's tokens set
	if err := config.AddRedisSet(tokensKey(s.ProfileId), s.Token); err != nil {
		return err
	}
	return config.SetRedisObject(sessionKey(s.Token), &s, lifespan)
}

// LoadSession returns ErrUnauthorized for unknown or expired tokens.
func LoadSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, utils.ErrUnauthorized
	}
	if config.GetRedisDB() == nil {
		v, ok := localSessions.Load(token)
		if !ok {
			return nil, utils.ErrUnauthorized
		}
		s := v.(Session)
		return &s, nil
	}
	var s Session
	exists, err := config.GetRedisObject(sessionKey(token), &s)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, utils.ErrUnauthorized
	}
	return &s, nil
}

// destroy current session
func DestroySession(token string, profileId string) error {
	if config.GetRedisDB() == nil {
		localSessions.Delete(token)
		return nil
	}
	if err := config.RemoveRedisKey(sessionKey(token)); err != nil {
		return err
	}
	return config.RemoveRedisSetMember(tokensKey(profileId), token)
}

// DestroyAllSessions signs a profile out everywhere, e.g. after a role change.
func DestroyAllSessions(profileId string) error {
	if config.GetRedisDB() == nil {
		localSessions.Range(func(k, v any) bool {
			if v.(Session).ProfileId == profileId {
				localSessions.Delete(k)
			}
			return true
		})
		return nil
	}
	tokens, err := config.GetRedisSetMembers(tokensKey(profileId))
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(t))
	}
	keys = append(keys, tokensKey(profileId))
	return config.RemoveRedisKey(keys...)
}

func newSession(p *Profile, token string) Session {
	return Session{
		Token:     token,
		ProfileId: p.ID,
		Email:     p.Email,
		Role:      p.Role,
		FullName:  p.FullName,
	}
}

// sessionExpiry is when a freshly issued session stops being valid.
func sessionExpiry() time.Time {
	return time.Now().Add(utils.TokenLifespan())
}
