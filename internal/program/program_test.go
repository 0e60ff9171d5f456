package program

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chainchat/chainchat/internal/address"
	"github.com/chainchat/chainchat/internal/certificate"
	cerrors "github.com/chainchat/chainchat/internal/errors"
	"github.com/chainchat/chainchat/internal/events"
	"github.com/chainchat/chainchat/internal/ledger"
	"github.com/chainchat/chainchat/internal/state"
)

func testAddr(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

type fixture struct {
	prog   *Program
	ledger *ledger.Ledger
	owner  address.Address
	now    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	l := ledger.New(logger)
	prog := New(logger, l, certificate.NewLocalIssuer(logger))
	return &fixture{prog: prog, ledger: l, owner: testAddr(0x01), now: 1_700_000_000}
}

func (f *fixture) ctx(caller address.Address) Context {
	return Context{Caller: caller, Now: f.now, Events: events.NewBuffer()}
}

func (f *fixture) init(t *testing.T) {
	t.Helper()
	require.NoError(t, f.prog.Initialize(f.ctx(f.owner)))
}

func (f *fixture) fund(addr address.Address, amount uint64) {
	_ = f.ledger.Credit(addr, amount)
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name        string
		cost        uint64
		fee         uint64
		platformCut uint64
		creatorCut  uint64
	}{
		{"five percent of one million", 1_000_000, 5, 50_000, 950_000},
		{"zero fee", 1_000_000, 0, 0, 1_000_000},
		{"maximum fee", 1_000_000, 50, 500_000, 500_000},
		{"floors the platform cut", 1_000_001, 3, 30_000, 970_001},
		{"zero cost", 0, 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform, creator, err := SplitFee(tt.cost, tt.fee)
			require.NoError(t, err)
			assert.Equal(t, tt.platformCut, platform)
			assert.Equal(t, tt.creatorCut, creator)
			assert.Equal(t, tt.cost, platform+creator, "split must conserve the cost")
		})
	}
}

func TestSplitFeeOverflow(t *testing.T) {
	_, _, err := SplitFee(^uint64(0), 50)
	require.Error(t, err)
	assert.True(t, cerrors.IsArithmetic(err))
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)
	f.init(t)

	cfg, err := f.prog.loadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Initialized)
	assert.Equal(t, uint64(0), cfg.TotalChannels)
	assert.Equal(t, uint64(state.DefaultPlatformFeePercent), cfg.PlatformFeePercent)
	assert.Equal(t, f.owner, cfg.Owner)
	assert.Equal(t, f.owner, cfg.FeeRecipient)

	err = f.prog.Initialize(f.ctx(f.owner))
	assert.ErrorIs(t, err, cerrors.ErrAlreadyInitialized)
}

func TestSetPlatformFee(t *testing.T) {
	f := newFixture(t)
	f.init(t)

	require.NoError(t, f.prog.SetPlatformFee(f.ctx(f.owner), 10))
	cfg, _ := f.prog.loadConfig()
	assert.Equal(t, uint64(10), cfg.PlatformFeePercent)

	err := f.prog.SetPlatformFee(f.ctx(f.owner), state.MaxPlatformFeePercent+1)
	assert.ErrorIs(t, err, cerrors.ErrFeeExceedsMaximum)

	err = f.prog.SetPlatformFee(f.ctx(testAddr(0x99)), 10)
	assert.ErrorIs(t, err, cerrors.ErrUnauthorizedOwner)
}

func TestCreateChannelValidation(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	creator := testAddr(0x02)

	long := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'x'
		}
		return string(b)
	}

	tests := []struct {
		name    string
		chName  string
		cost    uint64
		wantErr error
	}{
		{"empty name", "", state.MinChannelCost, cerrors.ErrNameTooLong},
		{"name too long", long(state.MaxChannelNameLength + 1), state.MinChannelCost, cerrors.ErrNameTooLong},
		{"cost below minimum", "general", state.MinChannelCost - 1, cerrors.ErrInvalidCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.prog.CreateChannel(f.ctx(creator), tt.chName, "", "", tt.cost, false)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateChannel(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	creator := testAddr(0x02)

	id, err := f.prog.CreateChannel(f.ctx(creator), "general", "the lobby", "", state.MinChannelCost, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	ch, err := f.prog.loadChannel(id)
	require.NoError(t, err)
	assert.Equal(t, creator, ch.Creator)
	assert.Equal(t, uint64(1), ch.MemberCount, "creator is the first member")
	assert.Equal(t, uint64(0), ch.PollCount)

	mem, ok := f.prog.loadMembership(id, creator)
	require.True(t, ok)
	assert.True(t, mem.Joined)
	assert.True(t, mem.HasCertificate(), "creation issues a certificate")

	cfg, _ := f.prog.loadConfig()
	assert.Equal(t, uint64(1), cfg.TotalChannels)
}

func TestJoinChannelSplitsFee(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	creator := testAddr(0x02)
	member := testAddr(0x03)

	id, err := f.prog.CreateChannel(f.ctx(creator), "general", "", "", 1_000_000, false)
	require.NoError(t, err)

	f.fund(member, 2_000_000)
	require.NoError(t, f.prog.JoinChannel(f.ctx(member), id))

	assert.Equal(t, uint64(1_000_000), f.ledger.Balance(member))
	assert.Equal(t, uint64(50_000), f.ledger.Balance(f.owner), "platform cut goes to the fee recipient")
	assert.Equal(t, uint64(950_000), f.ledger.Balance(creator))

	ch, _ := f.prog.loadChannel(id)
	assert.Equal(t, uint64(2), ch.MemberCount)

	mem, ok := f.prog.loadMembership(id, member)
	require.True(t, ok)
	assert.True(t, mem.Joined)
	assert.True(t, mem.HasCertificate())
}

func TestJoinChannelErrors(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	creator := testAddr(0x02)
	member := testAddr(0x03)

	id, err := f.prog.CreateChannel(f.ctx(creator), "general", "", "", 1_000_000, false)
	require.NoError(t, err)

	err = f.prog.JoinChannel(f.ctx(member), id)
	assert.ErrorIs(t, err, cerrors.ErrInsufficientFunds, "broke members cannot join")

	f.fund(member, 5_000_000)
	require.NoError(t, f.prog.JoinChannel(f.ctx(member), id))

	err = f.prog.JoinChannel(f.ctx(member), id)
	assert.ErrorIs(t, err, cerrors.ErrAlreadyJoined)

	err = f.prog.JoinChannel(f.ctx(member), 42)
	assert.ErrorIs(t, err, cerrors.ErrChannelNotFound)
}

func TestRejoinKeepsCertificate(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	creator := testAddr(0x02)
	member := testAddr(0x03)

	id, err := f.prog.CreateChannel(f.ctx(creator), "general", "", "", 1_000_000, false)
	require.NoError(t, err)

	f.fund(member, 5_000_000)
	require.NoError(t, f.prog.JoinChannel(f.ctx(member), id))
	mem, _ := f.prog.loadMembership(id, member)
	firstCert := mem.CertificateID

	require.NoError(t, f.prog.LeaveChannel(f.ctx(member), id))
	mem, _ = f.prog.loadMembership(id, member)
	assert.False(t, mem.Joined, "leaving keeps the record but clears the flag")

	require.NoError(t, f.prog.JoinChannel(f.ctx(member), id))
	mem, _ = f.prog.loadMembership(id, member)
	assert.True(t, mem.Joined)
	assert.Equal(t, firstCert, mem.CertificateID, "rejoin pays again but keeps the original certificate")
	assert.Equal(t, uint64(3_000_000), f.ledger.Balance(member), "rejoin is paid")
}

// serialIssuer mints a fresh serial on every call, so any second issuance
// for the same membership is visible in the count and the serial.
type serialIssuer struct {
	calls int
}

func (s *serialIssuer) Issue(address.Address, address.Address, uint64) (string, error) {
	s.calls++
	return fmt.Sprintf("serial-%d", s.calls), nil
}

func TestRejoinDoesNotReissue(t *testing.T) {
	logger := zaptest.NewLogger(t)
	l := ledger.New(logger)
	issuer := &serialIssuer{}
	f := &fixture{prog: New(logger, l, issuer), ledger: l, owner: testAddr(0x01), now: 1_700_000_000}
	f.init(t)

	creator := testAddr(0x02)
	member := testAddr(0x03)
	id, err := f.prog.CreateChannel(f.ctx(creator), "general", "", "", 1_000_000, false)
	require.NoError(t, err)

	f.fund(member, 5_000_000)
	require.NoError(t, f.prog.JoinChannel(f.ctx(member), id))
	require.NoError(t, f.prog.LeaveChannel(f.ctx(member), id))
	require.NoError(t, f.prog.JoinChannel(f.ctx(member), id))

	mem, _ := f.prog.loadMembership(id, member)
	assert.Equal(t, "serial-2", mem.CertificateID)
	assert.Equal(t, 2, issuer.calls, "the creator join mints one, the member join the other")
}

func TestLeaveChannelErrors(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	creator := testAddr(0x02)
	stranger := testAddr(0x04)

	id, err := f.prog.CreateChannel(f.ctx(creator), "general", "", "", 1_000_000, false)
	require.NoError(t, err)

	err = f.prog.LeaveChannel(f.ctx(stranger), id)
	assert.ErrorIs(t, err, cerrors.ErrMembershipNotFound)

	require.NoError(t, f.prog.LeaveChannel(f.ctx(creator), id))
	err = f.prog.LeaveChannel(f.ctx(creator), id)
	assert.ErrorIs(t, err, cerrors.ErrNotMember)
}

func TestUpdateChannel(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	creator := testAddr(0x02)

	id, err := f.prog.CreateChannel(f.ctx(creator), "general", "", "", 1_000_000, false)
	require.NoError(t, err)

	newName := "moderated"
	newCost := uint64(2_000_000)
	f.now++
	require.NoError(t, f.prog.UpdateChannel(f.ctx(creator), id, ChannelUpdate{Name: &newName, Cost: &newCost}))

	ch, _ := f.prog.loadChannel(id)
	assert.Equal(t, "moderated", ch.Name)
	assert.Equal(t, uint64(2_000_000), ch.Cost)
	assert.Greater(t, ch.UpdatedAt, ch.CreatedAt)

	err = f.prog.UpdateChannel(f.ctx(testAddr(0x99)), id, ChannelUpdate{Name: &newName})
	assert.ErrorIs(t, err, cerrors.ErrUnauthorizedCreator)

	badCost := state.MinChannelCost - 1
	err = f.prog.UpdateChannel(f.ctx(creator), id, ChannelUpdate{Cost: &badCost})
	assert.ErrorIs(t, err, cerrors.ErrInvalidCost)
}

func TestDeleteChannel(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	creator := testAddr(0x02)

	id, err := f.prog.CreateChannel(f.ctx(creator), "general", "", "", 1_000_000, false)
	require.NoError(t, err)

	err = f.prog.DeleteChannel(f.ctx(testAddr(0x99)), id)
	assert.ErrorIs(t, err, cerrors.ErrUnauthorizedCreator)

	f.fund(address.ForChannel(id), 777)
	before := f.ledger.Balance(creator)
	require.NoError(t, f.prog.DeleteChannel(f.ctx(creator), id))
	assert.Equal(t, before+777, f.ledger.Balance(creator), "residual channel funds refund to the creator")

	_, err = f.prog.loadChannel(id)
	assert.ErrorIs(t, err, cerrors.ErrChannelNotFound)

	_, ok := f.prog.loadMembership(id, creator)
	assert.True(t, ok, "membership records outlive the channel")
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	f.init(t)

	treasury := address.ForState()
	require.NoError(t, f.prog.SetFeeRecipient(f.ctx(f.owner), treasury))

	creator := testAddr(0x02)
	member := testAddr(0x03)
	id, err := f.prog.CreateChannel(f.ctx(creator), "general", "", "", 1_000_000, false)
	require.NoError(t, err)

	f.fund(member, 1_000_000)
	require.NoError(t, f.prog.JoinChannel(f.ctx(member), id))
	assert.Equal(t, uint64(50_000), f.ledger.Balance(treasury))

	err = f.prog.Withdraw(f.ctx(f.owner), 0)
	assert.ErrorIs(t, err, cerrors.ErrInvalidWithdrawal)
	err = f.prog.Withdraw(f.ctx(f.owner), 50_001)
	assert.ErrorIs(t, err, cerrors.ErrInvalidWithdrawal)
	err = f.prog.Withdraw(f.ctx(testAddr(0x99)), 1)
	assert.ErrorIs(t, err, cerrors.ErrUnauthorizedOwner)

	require.NoError(t, f.prog.Withdraw(f.ctx(f.owner), 50_000))
	assert.Equal(t, uint64(0), f.ledger.Balance(treasury))
	assert.Equal(t, uint64(50_000), f.ledger.Balance(f.owner))
}

func TestProfileLifecycle(t *testing.T) {
	f := newFixture(t)
	user := testAddr(0x07)

	require.NoError(t, f.prog.CreateProfile(f.ctx(user), "alice", "hello", ""))

	err := f.prog.CreateProfile(f.ctx(user), "alice", "", "")
	assert.ErrorIs(t, err, cerrors.ErrRecordExists)

	name, ok := f.prog.profileDisplayName(user)
	require.True(t, ok)
	assert.Equal(t, "alice", name)

	newBio := "moderator"
	require.NoError(t, f.prog.UpdateProfile(f.ctx(user), ProfileUpdate{Bio: &newBio}))

	err = f.prog.UpdateProfile(f.ctx(testAddr(0x08)), ProfileUpdate{Bio: &newBio})
	assert.ErrorIs(t, err, cerrors.ErrProfileNotFound)

	long := make([]byte, state.MaxDisplayNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	err = f.prog.CreateProfile(f.ctx(testAddr(0x09)), string(long), "", "")
	assert.ErrorIs(t, err, cerrors.ErrDisplayNameTooLong)
}
