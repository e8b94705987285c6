package chain

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature related errors
var (
	ErrInvalidRecoveryID = errors.New("invalid signature recovery id")
	ErrUnknownVersion    = errors.New("unknown signature version")
)

// Verifier checks order signatures against the digests of one domain.
// The domain separator is computed once at construction.
type Verifier struct {
	verifyingContract common.Address
	domainSeparator   common.Hash
}

// NewVerifier creates a Verifier bound to the given domain
func NewVerifier(domain *EIP712Domain) *Verifier {
	return &Verifier{
		verifyingContract: domain.VerifyingContract,
		domainSeparator:   domain.Hash(),
	}
}

// DomainSeparator returns the cached domain separator
func (v *Verifier) DomainSeparator() common.Hash {
	return v.domainSeparator
}

// VerifyingContract returns the identity the domain is bound to
func (v *Verifier) VerifyingContract() common.Address {
	return v.verifyingContract
}

// OrderDigest returns the typed-data digest of the order under this domain
func (v *Verifier) OrderDigest(order *Order) common.Hash {
	return typedDataHash(v.domainSeparator, order.Hash())
}

// SignedDigest returns the exact bytes recovered against for the given version
func (v *Verifier) SignedDigest(order *Order, version SignatureVersion) (common.Hash, error) {
	switch version {
	case VersionStructured:
		return v.OrderDigest(order), nil
	case VersionPersonalSign:
		return PersonalMessageHash(v.OrderDigest(order)), nil
	default:
		return common.Hash{}, ErrUnknownVersion
	}
}

// IsValid reports whether sig was produced by sig.Signer over the order
func (v *Verifier) IsValid(order *Order, sig *Signature) bool {
	if order == nil || sig == nil {
		return false
	}
	digest, err := v.SignedDigest(order, sig.Version)
	if err != nil {
		return false
	}
	signer, err := RecoverSigner(digest, sig.V, sig.R, sig.S)
	if err != nil {
		return false
	}
	return signer == sig.Signer
}

// SimpleDigest returns the prefixed legacy digest of a flat order
func (v *Verifier) SimpleDigest(order *SimpleOrder) common.Hash {
	return PersonalMessageHash(SimpleOrderHash(v.verifyingContract, order))
}

// IsValidSimple reports whether the maker wallet itself signed the flat order
func (v *Verifier) IsValidSimple(order *SimpleOrder, sigV uint8, r, s [32]byte) bool {
	if order == nil {
		return false
	}
	signer, err := RecoverSigner(v.SimpleDigest(order), sigV, r, s)
	if err != nil {
		return false
	}
	return signer == order.MakerWallet
}

// RecoverSigner recovers the address that signed digest. Only the 27/28
// recovery ids accepted by ecrecover are valid.
func RecoverSigner(digest common.Hash, v uint8, r, s [32]byte) (common.Address, error) {
	if v != 27 && v != 28 {
		return common.Address{}, ErrInvalidRecoveryID
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig[0:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = v - 27

	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
