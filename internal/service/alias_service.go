package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"recivo/internal/config"
	"recivo/internal/domain"
	"recivo/internal/port"
)

// aliasRe is the shape every forwarding alias must satisfy.
var aliasRe = regexp.MustCompile(`^[a-z0-9._-]{3,64}$`)

// maxAliasAttempts bounds the numeric-suffix search before falling back to
// a random alias.
const maxAliasAttempts = 100

// AliasService manages per-user forwarding email addresses.
type AliasService interface {
	// EnsureForwardingAddress returns the user's forwarding address,
	// assigning a fresh alias on first use.
	EnsureForwardingAddress(ctx context.Context, userID uuid.UUID) (string, error)
}

type aliasService struct {
	userRepo   port.UserRepository
	inboundCfg *config.InboundConfig
}

// NewAliasService creates a new AliasService implementation.
func NewAliasService(userRepo port.UserRepository, inboundCfg *config.InboundConfig) AliasService {
	return &aliasService{userRepo: userRepo, inboundCfg: inboundCfg}
}

func (s *aliasService) EnsureForwardingAddress(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.ForwardingAlias != "" {
		return s.address(user.ForwardingAlias), nil
	}

	alias, err := s.assignAlias(ctx, user)
	if err != nil {
		return "", err
	}
	return s.address(alias), nil
}

// assignAlias derives a base alias from the user's name or email, then walks
// numeric suffixes until a free alias is found. When the namespace around the
// base is exhausted it falls back to a random alias.
func (s *aliasService) assignAlias(ctx context.Context, user *domain.User) (string, error) {
	base := deriveAliasBase(user.FullName)
	if base == "" {
		base = deriveAliasBase(localPart(user.Email))
	}

	if base != "" {
		candidate := base
		for attempt := 0; attempt < maxAliasAttempts; attempt++ {
			if attempt > 0 {
				candidate = suffixed(base, attempt)
			}
			if !aliasRe.MatchString(candidate) {
				break
			}
			taken, err := s.userRepo.AliasExists(ctx, candidate)
			if err != nil {
				return "", fmt.Errorf("checking alias %q: %w", candidate, err)
			}
			if taken {
				continue
			}
			if err := s.claim(ctx, user.ID, candidate); err != nil {
				if errors.Is(err, domain.ErrDuplicateAlias) {
					continue
				}
				return "", err
			}
			return candidate, nil
		}
		log.Printf("aliasService.assignAlias: namespace around %q exhausted for user %s", base, user.ID)
	}

	// Random fallback: collisions are practically impossible, but the claim
	// still goes through the unique index.
	for i := 0; i < 3; i++ {
		candidate := randomAlias()
		if err := s.claim(ctx, user.ID, candidate); err != nil {
			if errors.Is(err, domain.ErrDuplicateAlias) {
				continue
			}
			return "", err
		}
		return candidate, nil
	}
	return "", domain.ErrAliasExhausted
}

func (s *aliasService) claim(ctx context.Context, userID uuid.UUID, alias string) error {
	return s.userRepo.SetForwardingAlias(ctx, userID, alias)
}

func (s *aliasService) address(alias string) string {
	return alias + "@" + s.inboundCfg.EmailDomain
}

// deriveAliasBase lowercases the input, maps spaces to dots, drops anything
// outside the alias alphabet and enforces the length bounds.
func deriveAliasBase(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('.')
		}
	}
	base := strings.Trim(b.String(), "._-")
	if len(base) > 64 {
		base = base[:64]
	}
	if !aliasRe.MatchString(base) {
		return ""
	}
	return base
}

// suffixed appends a numeric suffix, trimming the base so the result stays
// within the 64-character cap.
func suffixed(base string, n int) string {
	suffix := strconv.Itoa(n)
	if len(base)+len(suffix) > 64 {
		base = base[:64-len(suffix)]
		base = strings.TrimRight(base, "._-")
	}
	return base + suffix
}

// localPart returns the part of an email address before the '@'.
func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

// randomAlias returns an "r-" prefixed hex alias.
func randomAlias() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "r-" + hex.EncodeToString(buf)
}
