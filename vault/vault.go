// ABOUTME: Persistent list of signed-in Google accounts with encrypted refresh tokens
// ABOUTME: Migrates the single-account legacy layout into the account list on first read
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/adrg/xdg"
)

const (
	accountsKey = "accounts"

	legacyRefreshTokenKey = "google_refresh_token"
	legacyAccessTokenKey  = "google_access_token"
	legacyTokenExpiryKey  = "google_token_expiry"
	legacyEmailKey        = "current_account_email"
	legacyPictureKey      = "current_account_picture"

	// UnknownEmail is recorded when no identity could be resolved.
	UnknownEmail = "unknown"
)

var legacyKeys = []string{
	legacyRefreshTokenKey,
	legacyAccessTokenKey,
	legacyTokenExpiryKey,
	legacyEmailKey,
	legacyPictureKey,
}

// Account is one signed-in Google identity. RefreshToken is always codec output.
// Expiry is epoch milliseconds; zero means unknown.
type Account struct {
	Email        string `json:"email"`
	Picture      string `json:"picture,omitempty"`
	RefreshToken string `json:"refreshToken"`
	AccessToken  string `json:"accessToken,omitempty"`
	Expiry       int64  `json:"expiry,omitempty"`
}

// Profile is the public part of an account.
type Profile struct {
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

// Dir returns the XDG data directory holding the vault files.
func Dir() string {
	return filepath.Join(xdg.DataHome, "weekcal")
}

// Vault is safe for concurrent use. Every mutation is written to the store before returning.
type Vault struct {
	mu    sync.Mutex
	store Store
	codec Codec
}

// New wraps store with codec.
func New(store Store, codec Codec) *Vault {
	return &Vault{store: store, codec: codec}
}

// Secure reports whether tokens are encrypted rather than merely encoded.
func (v *Vault) Secure() bool {
	return v.codec.Secure()
}

// Encrypt encodes a secret for storage.
func (v *Vault) Encrypt(plaintext string) string {
	return v.codec.Encrypt(plaintext)
}

// Decrypt returns the plaintext and false when the value cannot be decoded.
func (v *Vault) Decrypt(ciphertext string) (string, bool) {
	return v.codec.Decrypt(ciphertext)
}

// Accounts returns the stored accounts in sign-in order, migrating the legacy layout if needed.
func (v *Vault) Accounts() ([]Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ensureMigrated()
}

// Upsert replaces the account with the same email or appends a new one.
func (v *Vault) Upsert(account Account) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	accounts, err := v.ensureMigrated()
	if err != nil {
		return err
	}
	for i := range accounts {
		if accounts[i].Email == account.Email {
			accounts[i] = account
			return v.write(accounts)
		}
	}
	return v.write(append(accounts, account))
}

// Remove deletes the account with email. An empty email removes every account
// along with any leftover legacy keys.
func (v *Vault) Remove(email string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if email == "" {
		if err := v.write([]Account{}); err != nil {
			return err
		}
		return v.deleteLegacy()
	}

	accounts, err := v.ensureMigrated()
	if err != nil {
		return err
	}
	next := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Email != email {
			next = append(next, a)
		}
	}
	return v.write(next)
}

// Save replaces the whole account list.
func (v *Vault) Save(accounts []Account) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.write(accounts)
}

// PrimaryRefreshToken returns the decrypted refresh token of the first account.
func (v *Vault) PrimaryRefreshToken() (string, bool) {
	accounts, err := v.Accounts()
	if err != nil || len(accounts) == 0 {
		return "", false
	}
	return v.codec.Decrypt(accounts[0].RefreshToken)
}

// Profiles lists email and picture for every account.
func (v *Vault) Profiles() ([]Profile, error) {
	accounts, err := v.Accounts()
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(accounts))
	for _, a := range accounts {
		profiles = append(profiles, Profile{Email: a.Email, Picture: a.Picture})
	}
	return profiles, nil
}

// IsAuthenticated reports whether at least one account is stored.
func (v *Vault) IsAuthenticated() bool {
	accounts, err := v.Accounts()
	return err == nil && len(accounts) > 0
}

// PendingMigration reports whether a readable legacy single-account entry is
// waiting to be moved into an empty account list.
func (v *Vault) PendingMigration() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	accounts, err := v.read()
	if err != nil || len(accounts) > 0 {
		return false
	}
	refresh := v.legacyString(legacyRefreshTokenKey)
	if refresh == "" {
		return false
	}
	_, ok := v.codec.Decrypt(refresh)
	return ok
}

func (v *Vault) ensureMigrated() ([]Account, error) {
	accounts, err := v.read()
	if err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		return accounts, nil
	}
	if err := v.migrateLegacy(); err != nil {
		return nil, err
	}
	return v.read()
}

// read decodes the account list, dropping entries without an email or refresh token.
func (v *Vault) read() ([]Account, error) {
	raw, err := v.store.Get(accountsKey)
	if errors.Is(err, ErrNotFound) {
		return []Account{}, nil
	}
	if err != nil {
		return nil, err
	}

	var decoded []*Account
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// A corrupt list reads as empty, matching a store that was never written.
		return []Account{}, nil
	}
	accounts := make([]Account, 0, len(decoded))
	for _, a := range decoded {
		if a == nil || a.Email == "" || a.RefreshToken == "" {
			continue
		}
		accounts = append(accounts, *a)
	}
	return accounts, nil
}

func (v *Vault) write(accounts []Account) error {
	if accounts == nil {
		accounts = []Account{}
	}
	data, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}
	return v.store.Set(accountsKey, data)
}

func (v *Vault) migrateLegacy() error {
	refresh := v.legacyString(legacyRefreshTokenKey)
	if refresh == "" {
		return nil
	}
	if _, ok := v.codec.Decrypt(refresh); !ok {
		return nil
	}

	account := Account{
		Email:        v.legacyString(legacyEmailKey),
		Picture:      v.legacyString(legacyPictureKey),
		RefreshToken: refresh,
		AccessToken:  v.legacyString(legacyAccessTokenKey),
		Expiry:       v.legacyNumber(legacyTokenExpiryKey),
	}
	if account.Email == "" {
		account.Email = UnknownEmail
	}

	if err := v.write([]Account{account}); err != nil {
		return fmt.Errorf("failed to migrate legacy tokens: %w", err)
	}
	return v.deleteLegacy()
}

func (v *Vault) deleteLegacy() error {
	for _, key := range legacyKeys {
		if err := v.store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// legacyString reads a legacy value stored either as a JSON string or as raw bytes.
func (v *Vault) legacyString(key string) string {
	raw, err := v.store.Get(key)
	if err != nil || len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	if raw[0] == '{' || raw[0] == '[' {
		return ""
	}
	return string(raw)
}

// legacyNumber reads the legacy expiry. Non-numeric values are treated as absent.
func (v *Vault) legacyNumber(key string) int64 {
	raw, err := v.store.Get(key)
	if err != nil || len(raw) == 0 {
		return 0
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return int64(f)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
