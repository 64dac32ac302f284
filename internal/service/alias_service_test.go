package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recivo/internal/config"
	"recivo/internal/domain"
	"recivo/mocks"
)

func newAliasFixture(userRepo *mocks.MockUserRepo) AliasService {
	return NewAliasService(userRepo, &config.InboundConfig{EmailDomain: "in.recivo.app"})
}

func TestDeriveAliasBase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Jo Doe", "jo.doe"},
		{"  Ana-Maria O'Neill ", "ana-maria.oneill"},
		{"李", ""},    // nothing representable
		{"ab", ""},   // too short
		{"x y", "x.y"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, deriveAliasBase(c.in), "input %q", c.in)
	}
}

func TestEnsureForwardingAddress_ExistingAlias(t *testing.T) {
	user := activeUser()
	user.ForwardingAlias = "jo.doe"

	userRepo := new(mocks.MockUserRepo)
	userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	svc := newAliasFixture(userRepo)
	addr, err := svc.EnsureForwardingAddress(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Equal(t, "jo.doe@in.recivo.app", addr)
	userRepo.AssertNotCalled(t, "SetForwardingAlias", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureForwardingAddress_AssignsFromName(t *testing.T) {
	user := activeUser()
	user.ForwardingAlias = ""

	userRepo := new(mocks.MockUserRepo)
	userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	userRepo.On("AliasExists", mock.Anything, "jo.doe").Return(false, nil)
	userRepo.On("SetForwardingAlias", mock.Anything, user.ID, "jo.doe").Return(nil)

	svc := newAliasFixture(userRepo)
	addr, err := svc.EnsureForwardingAddress(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Equal(t, "jo.doe@in.recivo.app", addr)
	userRepo.AssertExpectations(t)
}

func TestEnsureForwardingAddress_WalksNumericSuffixes(t *testing.T) {
	user := activeUser()
	user.ForwardingAlias = ""

	userRepo := new(mocks.MockUserRepo)
	userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	userRepo.On("AliasExists", mock.Anything, "jo.doe").Return(true, nil)
	userRepo.On("AliasExists", mock.Anything, "jo.doe1").Return(true, nil)
	userRepo.On("AliasExists", mock.Anything, "jo.doe2").Return(false, nil)
	userRepo.On("SetForwardingAlias", mock.Anything, user.ID, "jo.doe2").Return(nil)

	svc := newAliasFixture(userRepo)
	addr, err := svc.EnsureForwardingAddress(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Equal(t, "jo.doe2@in.recivo.app", addr)
}

func TestEnsureForwardingAddress_RandomFallback(t *testing.T) {
	user := activeUser()
	user.ForwardingAlias = ""
	user.FullName = "李"          // nothing representable
	user.Email = "@!"             // unusable local part

	userRepo := new(mocks.MockUserRepo)
	userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	var claimed string
	userRepo.On("SetForwardingAlias", mock.Anything, user.ID, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { claimed = args.String(2) }).
		Return(nil)

	svc := newAliasFixture(userRepo)
	addr, err := svc.EnsureForwardingAddress(context.Background(), user.ID)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(claimed, "r-"))
	assert.Regexp(t, `^r-[0-9a-f]{16}@in\.recivo\.app$`, addr)
}

func TestEnsureForwardingAddress_DuplicateClaimRetries(t *testing.T) {
	user := activeUser()
	user.ForwardingAlias = ""

	userRepo := new(mocks.MockUserRepo)
	userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	userRepo.On("AliasExists", mock.Anything, "jo.doe").Return(false, nil)
	// Lost the race on the unique index; the next suffix wins.
	userRepo.On("SetForwardingAlias", mock.Anything, user.ID, "jo.doe").Return(domain.ErrDuplicateAlias)
	userRepo.On("AliasExists", mock.Anything, "jo.doe1").Return(false, nil)
	userRepo.On("SetForwardingAlias", mock.Anything, user.ID, "jo.doe1").Return(nil)

	svc := newAliasFixture(userRepo)
	addr, err := svc.EnsureForwardingAddress(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Equal(t, "jo.doe1@in.recivo.app", addr)
}
