package auth

import (
	"context"
	"testing"
	"time"

	"houseform-api/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuth(t *testing.T) (*Service, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Service{Rdb: rdb}, mr
}

func newKey(t *testing.T) (string, func(string) string) {
	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(k.PublicKey).Hex()
	sign := func(message string) string {
		sig, err := crypto.Sign(personalHash(message), k)
		require.NoError(t, err)
		sig[64] += 27
		return hexutil.Encode(sig)
	}
	return addr, sign
}

func TestIssueNonceAndVerify(t *testing.T) {
	svc, mr := setupAuth(t)
	ctx := context.Background()
	addr, sign := newKey(t)

	ch, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "Sign in to Houseform: "+ch.Nonce, ch.Message)
	assert.True(t, mr.Exists("auth:nonce:"+addr))
	assert.Equal(t, 5*time.Minute, mr.TTL("auth:nonce:"+addr))

	got, err := svc.Verify(ctx, addr, sign(ch.Message))
	require.NoError(t, err)
	assert.Equal(t, addr, got.Hex())

	// nonce is single use
	_, err = svc.Verify(ctx, addr, sign(ch.Message))
	assert.ErrorIs(t, err, ErrNonceNotFound)
}

func TestVerify_WrongSigner(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()
	addr, _ := newKey(t)
	_, otherSign := newKey(t)

	ch, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, addr, otherSign(ch.Message))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_BadInput(t *testing.T) {
	svc, mr := setupAuth(t)
	ctx := context.Background()
	addr, sign := newKey(t)

	_, err := svc.IssueNonce(ctx, "")
	assert.ErrorIs(t, err, ErrAddressRequired)
	_, err = svc.IssueNonce(ctx, "0x12")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = svc.Verify(ctx, addr, sign("anything"))
	assert.ErrorIs(t, err, ErrNonceNotFound)

	ch, err := svc.IssueNonce(ctx, addr)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, addr, "0xdeadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	ch, err = svc.IssueNonce(ctx, addr)
	require.NoError(t, err)
	mr.FastForward(6 * time.Minute)
	_, err = svc.Verify(ctx, addr, sign(ch.Message))
	assert.ErrorIs(t, err, ErrNonceNotFound)
}

func TestRecoverAddress_AcceptsRawRecoveryID(t *testing.T) {
	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := crypto.Sign(personalHash("hello"), k)
	require.NoError(t, err)

	got, err := RecoverAddress("hello", sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(k.PublicKey), got)

	_, err = RecoverAddress("hello", sig[:10])
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyUser(t *testing.T) {
	_, err := VerifyUser(nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = VerifyUser(map[string]interface{}{"address": "nope"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	u, err := VerifyUser(map[string]interface{}{"address": "0x00000000000000000000000000000000000000a1"})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xa1").Hex(), u.Address)
}

func TestTrackSession(t *testing.T) {
	svc, mr := setupAuth(t)
	ctx := context.Background()
	addr, _ := newKey(t)
	a, _ := domain.ParseAddress(addr)

	require.NoError(t, svc.TrackSession(ctx, a, "sid-1"))
	members, err := mr.Members("user_sessions:" + addr)
	require.NoError(t, err)
	assert.Equal(t, []string{"sid-1"}, members)

	require.NoError(t, svc.UntrackSession(ctx, a, "sid-1"))
	left, err := svc.Rdb.SMembers(ctx, "user_sessions:"+addr).Result()
	require.NoError(t, err)
	assert.Empty(t, left)
}
