// Package keyfile loads the wallet credential blob, decrypting it first
// when it is an age-encrypted file.
//
// Plain JWK files are parsed as-is. Encrypted files (binary or ASCII
// armored) are decrypted with the identities from an age identity file,
// or with a passphrase taken from the environment or the terminal.
package keyfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
	"golang.org/x/term"

	"github.com/pithecene-io/lighthouse/arweave"
)

// PassphraseEnv names the environment variable holding the passphrase of
// a passphrase-encrypted wallet.
const PassphraseEnv = "LIGHTHOUSE_WALLET_PASSPHRASE"

const (
	ageHeader   = "age-encryption.org/v1\n"
	armorHeader = armor.Header
)

// ErrNoPassphrase is returned when an encrypted wallet needs a passphrase
// and none can be obtained.
var ErrNoPassphrase = errors.New("wallet is passphrase-encrypted: set " + PassphraseEnv + " or run from a terminal")

// Options controls decryption of encrypted wallets.
type Options struct {
	// IdentityFile is an age identity file used for recipient-encrypted wallets.
	IdentityFile string
	// Passphrase supplies the passphrase for scrypt-encrypted wallets.
	// Defaults to EnvOrTerminal.
	Passphrase func() ([]byte, error)
}

// Load reads the wallet at path.
func Load(path string, opts Options) (*arweave.Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet %s: %w", path, err)
	}
	if IsEncrypted(data) {
		data, err = decrypt(data, opts)
		if err != nil {
			return nil, fmt.Errorf("decrypt wallet %s: %w", path, err)
		}
	}
	w, err := arweave.ParseWallet(data)
	if err != nil {
		return nil, fmt.Errorf("parse wallet %s: %w", path, err)
	}
	return w, nil
}

// IsEncrypted reports whether data is an age file.
func IsEncrypted(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(data, []byte(ageHeader)) || bytes.HasPrefix(trimmed, []byte(armorHeader))
}

func decrypt(data []byte, opts Options) ([]byte, error) {
	var src io.Reader = bytes.NewReader(data)
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte(armorHeader)) {
		src = armor.NewReader(bytes.NewReader(bytes.TrimLeft(data, " \t\r\n")))
	}

	identities, err := identitiesFor(data, opts)
	if err != nil {
		return nil, err
	}
	r, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func identitiesFor(data []byte, opts Options) ([]age.Identity, error) {
	if opts.IdentityFile != "" {
		f, err := os.Open(opts.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("open identity file: %w", err)
		}
		defer f.Close()
		ids, err := age.ParseIdentities(f)
		if err != nil {
			return nil, fmt.Errorf("parse identity file %s: %w", opts.IdentityFile, err)
		}
		return ids, nil
	}

	if !isScrypt(data) {
		return nil, errors.New("wallet is encrypted to a recipient: an identity file is required")
	}
	passphrase := opts.Passphrase
	if passphrase == nil {
		passphrase = EnvOrTerminal
	}
	pass, err := passphrase()
	if err != nil {
		return nil, err
	}
	id, err := age.NewScryptIdentity(string(pass))
	if err != nil {
		return nil, err
	}
	return []age.Identity{id}, nil
}

// isScrypt reports whether a binary age header carries a scrypt stanza.
// Armored files are assumed to be passphrase-encrypted.
func isScrypt(data []byte) bool {
	if !bytes.HasPrefix(data, []byte(ageHeader)) {
		return true
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "-> scrypt ") {
			return true
		}
		if strings.HasPrefix(line, "---") {
			break
		}
	}
	return false
}

// EnvOrTerminal reads the passphrase from PassphraseEnv, falling back to
// an echo-free terminal prompt on stderr.
func EnvOrTerminal() ([]byte, error) {
	if v, ok := os.LookupEnv(PassphraseEnv); ok {
		return []byte(v), nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNoPassphrase
	}
	fmt.Fprint(os.Stderr, "Wallet passphrase: ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return pass, nil
}
