// Package sheets appends articles to a Google Sheet using a service account.
// The credential exchange (signed assertion -> bearer token -> authenticated
// append) is the only part of the system with failure modes beyond "the HTML
// changed", so token lifecycle and retry live here.
package sheets

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Defaults for the Sheets API. The token endpoint doubles as the assertion
// audience.
const (
	DefaultTokenURL   = "https://oauth2.googleapis.com/token"
	DefaultBaseURL    = "https://sheets.googleapis.com"
	SpreadsheetsScope = "https://www.googleapis.com/auth/spreadsheets"
)

var ErrIncompleteKeyFile = errors.New("key file missing client_email or private_key")

// Credentials holds service-account key material. The private key lives in
// memory only and must never be logged.
type Credentials struct {
	ClientEmail string
	PrivateKey  *rsa.PrivateKey
	TokenURL    string
	Scope       string
}

// keyFile mirrors the JSON layout of a downloaded service-account key.
type keyFile struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// LoadCredentials reads a service-account key file from disk.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}
	return ParseCredentials(data)
}

// ParseCredentials parses service-account key JSON into usable credentials.
func ParseCredentials(data []byte) (*Credentials, error) {
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse service account file: %w", err)
	}
	if kf.ClientEmail == "" || kf.PrivateKey == "" {
		return nil, ErrIncompleteKeyFile
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(kf.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	tokenURL := kf.TokenURI
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	return &Credentials{
		ClientEmail: kf.ClientEmail,
		PrivateKey:  key,
		TokenURL:    tokenURL,
		Scope:       SpreadsheetsScope,
	}, nil
}
