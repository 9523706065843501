package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"houseform-api/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/sha3"
)

const (
	noncePrefix        = "auth:nonce:"
	userSessionsPrefix = "user_sessions:"
	defaultNonceTTL    = 5 * time.Minute
	messagePrefix      = "Sign in to Houseform: "
)

// Service implements wallet sign-in: issue a one-time nonce, then verify a
// personal_sign signature over the login message containing it.
type Service struct {
	Rdb      *redis.Client
	NonceTTL time.Duration
}

// Challenge is returned by the nonce endpoint; the wallet signs Message.
type Challenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionUserShape is the object stored in session and returned by /me.
type SessionUserShape struct {
	Address string `json:"address"`
}

func LoginMessage(nonce string) string {
	return messagePrefix + nonce
}

func (s *Service) ttl() time.Duration {
	if s.NonceTTL > 0 {
		return s.NonceTTL
	}
	return defaultNonceTTL
}

// IssueNonce stores a fresh nonce for address, replacing any earlier one.
func (s *Service) IssueNonce(ctx context.Context, address string) (*Challenge, error) {
	if strings.TrimSpace(address) == "" {
		return nil, ErrAddressRequired
	}
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	nonce := uuid.New().String()
	if err := s.Rdb.Set(ctx, noncePrefix+addr.Hex(), nonce, s.ttl()).Err(); err != nil {
		return nil, err
	}
	return &Challenge{
		Address:   addr.Hex(),
		Nonce:     nonce,
		Message:   LoginMessage(nonce),
		ExpiresAt: time.Now().Add(s.ttl()).UTC(),
	}, nil
}

// Verify consumes the nonce for address and checks that signature was made by
// address over the login message. A nonce is usable once.
func (s *Service) Verify(ctx context.Context, address, signature string) (common.Address, error) {
	if strings.TrimSpace(address) == "" {
		return common.Address{}, ErrAddressRequired
	}
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return common.Address{}, err
	}
	nonce, err := s.Rdb.GetDel(ctx, noncePrefix+addr.Hex()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return common.Address{}, ErrNonceNotFound
		}
		return common.Address{}, err
	}
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	signer, err := RecoverAddress(LoginMessage(nonce), sig)
	if err != nil || signer != addr {
		return common.Address{}, ErrInvalidSignature
	}
	return addr, nil
}

// personalHash is keccak256("\x19Ethereum Signed Message:\n" + len(message) + message).
func personalHash(message string) []byte {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return h.Sum(nil)
}

// RecoverAddress returns the signer of a personal_sign signature. Wallets emit
// v as 27/28; both that and the raw 0/1 form are accepted.
func RecoverAddress(message string, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	rsv := make([]byte, len(sig))
	copy(rsv, sig)
	if rsv[crypto.RecoveryIDOffset] >= 27 {
		rsv[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(personalHash(message), rsv)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// TrackSession records sessionID under the address so all sessions of a wallet can be listed.
func (s *Service) TrackSession(ctx context.Context, addr common.Address, sessionID string) error {
	return s.Rdb.SAdd(ctx, userSessionsPrefix+addr.Hex(), sessionID).Err()
}

func (s *Service) UntrackSession(ctx context.Context, addr common.Address, sessionID string) error {
	return s.Rdb.SRem(ctx, userSessionsPrefix+addr.Hex(), sessionID).Err()
}

// VerifyUser validates the session user and returns the shape for /me.
func VerifyUser(sessionUser interface{}) (*SessionUserShape, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	address, _ := m["address"].(string)
	if !common.IsHexAddress(address) {
		return nil, ErrNotAuthenticated
	}
	return &SessionUserShape{Address: common.HexToAddress(address).Hex()}, nil
}
