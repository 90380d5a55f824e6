// Package credentials locates the Google service-account key used by the
// Sheets sink. Sources are tried in order and the first one holding a key
// wins.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	KeyringUser = "gcp_service_account"
	EnvVar      = "GOOGLE_APPLICATION_CREDENTIALS"
)

var ErrNotFound = errors.New("google credentials not configured: store them in the keyring, provide service_account.json or set " + EnvVar)

// Source returns the raw key JSON, or ErrNotFound when it holds none.
type Source interface {
	Name() string
	Load() ([]byte, error)
}

type KeyringSource struct {
	Service string
}

func (k KeyringSource) Name() string { return "keyring:" + k.Service }

func (k KeyringSource) Load() ([]byte, error) {
	secret, err := keyring.Get(k.Service, KeyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return "file:" + f.Path }

func (f FileSource) Load() ([]byte, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, ErrNotFound
	}
	blob, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return blob, err
}

// EnvFileSource reads the file named by an environment variable.
type EnvFileSource struct {
	Var string
}

func (e EnvFileSource) Name() string { return "env:" + e.Var }

func (e EnvFileSource) Load() ([]byte, error) {
	path := strings.TrimSpace(os.Getenv(e.Var))
	if path == "" {
		return nil, ErrNotFound
	}
	return FileSource{Path: path}.Load()
}

type Chain struct {
	Sources []Source
	// Warn receives sources that exist but could not be used.
	Warn func(source string, err error)
}

func DefaultChain(keyringService, file string) Chain {
	return Chain{
		Sources: []Source{
			KeyringSource{Service: keyringService},
			FileSource{Path: file},
			EnvFileSource{Var: EnvVar},
		},
		Warn: func(source string, err error) {
			fmt.Fprintf(os.Stderr, "credentials source skipped source=%s err=%v\n", source, err)
		},
	}
}

// Resolve returns the first valid key and the name of the source it came
// from.
func (c Chain) Resolve() ([]byte, string, error) {
	for _, src := range c.Sources {
		blob, err := src.Load()
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err == nil {
			err = Validate(blob)
		}
		if err != nil {
			if c.Warn != nil {
				c.Warn(src.Name(), err)
			}
			continue
		}
		return blob, src.Name(), nil
	}
	return nil, "", ErrNotFound
}

type serviceAccount struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// Validate checks that blob looks like a service-account key.
func Validate(blob []byte) error {
	var sa serviceAccount
	if err := json.Unmarshal(blob, &sa); err != nil {
		return fmt.Errorf("parse service account json: %w", err)
	}
	if sa.Type != "service_account" {
		return fmt.Errorf("unexpected credentials type %q", sa.Type)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return errors.New("service account json lacks client_email or private_key")
	}
	return nil
}

// ClientEmail returns the account the spreadsheet must be shared with.
func ClientEmail(blob []byte) string {
	var sa serviceAccount
	_ = json.Unmarshal(blob, &sa)
	return sa.ClientEmail
}

// Store saves a validated key in the OS keyring.
func Store(keyringService string, blob []byte) error {
	if err := Validate(blob); err != nil {
		return err
	}
	return keyring.Set(keyringService, KeyringUser, string(blob))
}

func Delete(keyringService string) error {
	err := keyring.Delete(keyringService, KeyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
