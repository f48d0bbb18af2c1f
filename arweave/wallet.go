package arweave

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/everFinance/goar"
	"github.com/everFinance/goar/utils"
)

// requiredJWKFields are the private-key members an Arweave keyfile must carry.
var requiredJWKFields = []string{"n", "e", "d", "p", "q"}

// Wallet is an RSA keypair loaded from an Arweave JWK keyfile.
type Wallet struct {
	signer *goar.Signer
}

// ParseWallet parses an Arweave JWK keyfile.
func ParseWallet(data []byte) (*Wallet, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid wallet JSON: %w", err)
	}
	if kty, _ := fields["kty"].(string); kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q (must be RSA)", fields["kty"])
	}
	for _, name := range requiredJWKFields {
		if v, _ := fields[name].(string); v == "" {
			return nil, fmt.Errorf("wallet is missing field %q", name)
		}
	}

	signer, err := goar.NewSigner(data)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet key: %w", err)
	}
	return &Wallet{signer: signer}, nil
}

// NewWallet wraps an existing RSA private key.
func NewWallet(key *rsa.PrivateKey) *Wallet {
	sum := sha256.Sum256(key.N.Bytes())
	return &Wallet{signer: &goar.Signer{
		Address: utils.Base64Encode(sum[:]),
		PubKey:  &key.PublicKey,
		PrvKey:  key,
	}}
}

// Address returns the wallet address: base64url(sha256(modulus)).
func (w *Wallet) Address() string {
	return w.signer.Address
}

// Owner returns the base64url-encoded public modulus placed in the
// owner field of transactions.
func (w *Wallet) Owner() string {
	return w.signer.Owner()
}

// PublicKey returns the wallet's public key.
func (w *Wallet) PublicKey() *rsa.PublicKey {
	return w.signer.PubKey
}
