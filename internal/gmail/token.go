package gmail

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/nhle/companytinder/internal/credential"
	"github.com/nhle/companytinder/internal/model"
)

// Secret store keys.
const (
	KeyClientID     = "GMAIL_CLIENT_ID"
	KeyClientSecret = "GMAIL_CLIENT_SECRET"
	KeyTokens       = "GMAIL_TOKENS"
)

// SecretStore loads and stores small string secrets by key. Get must
// return credential.ErrNotFound for absent keys.
type SecretStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// ClientCredential identifies the OAuth application.
type ClientCredential struct {
	ClientID     string
	ClientSecret string
}

// TokenSet is the persisted OAuth credential bundle.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// tokenSetFrom converts a token endpoint response.
func tokenSetFrom(tok *oauth2.Token) TokenSet {
	set := TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		set.Scopes = strings.Fields(scope)
	}
	return set
}

// Token returns the set in the form the OAuth client consumes.
func (t TokenSet) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

// merge fills fields the newer response omitted from prev. Providers
// usually leave refresh_token out of refresh responses.
func (t TokenSet) merge(prev TokenSet) TokenSet {
	if t.RefreshToken == "" {
		t.RefreshToken = prev.RefreshToken
	}
	if len(t.Scopes) == 0 {
		t.Scopes = prev.Scopes
	}
	return t
}

var errNoToken = errors.New("no stored gmail token")

// tokenStore persists the token set as JSON under KeyTokens.
type tokenStore struct {
	secrets SecretStore
}

func (s tokenStore) load() (TokenSet, error) {
	raw, err := s.secrets.Get(KeyTokens)
	if errors.Is(err, credential.ErrNotFound) || (err == nil && strings.TrimSpace(raw) == "") {
		return TokenSet{}, errNoToken
	}
	if err != nil {
		return TokenSet{}, fmt.Errorf("loading gmail token: %w", err)
	}

	var set TokenSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return TokenSet{}, fmt.Errorf("decoding stored gmail token: %w", err)
	}
	if set.AccessToken == "" && set.RefreshToken == "" {
		return TokenSet{}, errNoToken
	}
	return set, nil
}

// save writes set, keeping any previously stored refresh token the new
// set lacks.
func (s tokenStore) save(set TokenSet) error {
	prev, err := s.load()
	if err != nil && !errors.Is(err, errNoToken) {
		// Unreadable blobs are overwritten.
		prev = TokenSet{}
	}
	set = set.merge(prev)

	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding gmail token: %w", err)
	}
	if err := s.secrets.Set(KeyTokens, string(data)); err != nil {
		return fmt.Errorf("saving gmail token: %w", err)
	}
	return nil
}

func (s tokenStore) clear() error {
	if err := s.secrets.Delete(KeyTokens); err != nil {
		return fmt.Errorf("removing gmail token: %w", err)
	}
	return nil
}

// loadClientCredential reads the client id and secret. Either one
// missing is a configuration error.
func loadClientCredential(secrets SecretStore) (ClientCredential, error) {
	id, err := secretOrEmpty(secrets, KeyClientID)
	if err != nil {
		return ClientCredential{}, err
	}
	secret, err := secretOrEmpty(secrets, KeyClientSecret)
	if err != nil {
		return ClientCredential{}, err
	}
	if id == "" || secret == "" {
		return ClientCredential{}, model.NewError(model.KindConfiguration,
			"Missing Gmail OAuth client id/secret. Run setup and save them first.", nil)
	}
	return ClientCredential{ClientID: id, ClientSecret: secret}, nil
}

// SaveClientCredential stores the OAuth application credentials.
func SaveClientCredential(secrets SecretStore, cred ClientCredential) error {
	cred.ClientID = strings.TrimSpace(cred.ClientID)
	cred.ClientSecret = strings.TrimSpace(cred.ClientSecret)
	if cred.ClientID == "" || cred.ClientSecret == "" {
		return model.NewError(model.KindConfiguration, "Client id and client secret are both required.", nil)
	}
	if err := secrets.Set(KeyClientID, cred.ClientID); err != nil {
		return err
	}
	return secrets.Set(KeyClientSecret, cred.ClientSecret)
}

func secretOrEmpty(secrets SecretStore, key string) (string, error) {
	v, err := secrets.Get(key)
	if errors.Is(err, credential.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}
