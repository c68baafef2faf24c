package guest

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
)

var ErrInvalidToken = errors.New("invalid guest token")

// Service hands out guest identities. There is no account system: a guest is
// a stable id plus a display name, recovered later through an opaque token.
type Service struct {
	tokens tokenrepo.Repository
	ttl    time.Duration
	now    func() time.Time
}

// New returns a Service persisting tokens in tokens. A nil repository keeps
// them in process memory.
func New(tokens tokenrepo.Repository) *Service {
	if tokens == nil {
		tokens = tokenrepo.NewMemory()
	}
	return &Service{
		tokens: tokens,
		ttl:    30 * 24 * time.Hour,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a guest. A blank name becomes "Guest-XXXX".
func (s *Service) Issue(ctx context.Context, name string) (domain.User, string, error) {
	id := uuid.NewString()
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Guest-%s", strings.ToUpper(id[:4]))
	}
	user := domain.User{ID: id, Name: name}

	token, err := randomToken()
	if err != nil {
		return domain.User{}, "", fmt.Errorf("generate guest token: %w", err)
	}
	err = s.tokens.Create(ctx, tokenrepo.Token{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		ExpiresAt: s.now().Add(s.ttl),
	})
	if err != nil {
		return domain.User{}, "", fmt.Errorf("store guest token: %w", err)
	}
	return user, token, nil
}

// Lookup resolves a token from Issue back to its guest. Expired tokens are
// removed and rejected.
func (s *Service) Lookup(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrInvalidToken
	}
	t, err := s.tokens.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, fmt.Errorf("lookup guest token: %w", err)
	}
	if t.Expired(s.now()) {
		_ = s.tokens.Delete(ctx, token)
		return domain.User{}, ErrInvalidToken
	}
	return domain.User{ID: t.UserID, Name: t.UserName}, nil
}

// Purge drops every expired token.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge guest tokens: %w", err)
	}
	return n, nil
}

func (s *Service) TTLSeconds() int {
	return int(s.ttl.Seconds())
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
