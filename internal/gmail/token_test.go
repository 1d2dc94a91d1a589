package gmail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/nhle/companytinder/internal/model"
)

func TestTokenStoreKeepsRefreshToken(t *testing.T) {
	secrets := newSecrets(t, false)
	tokens := tokenStore{secrets: secrets}

	require.NoError(t, tokens.save(TokenSet{
		AccessToken:  "a1",
		RefreshToken: "r1",
		Scopes:       []string{"openid"},
	}))
	require.NoError(t, tokens.save(TokenSet{AccessToken: "a2"}))

	got, err := tokens.load()
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AccessToken)
	assert.Equal(t, "r1", got.RefreshToken)
	assert.Equal(t, []string{"openid"}, got.Scopes)

	require.NoError(t, tokens.save(TokenSet{AccessToken: "a3", RefreshToken: "r2"}))
	got, err = tokens.load()
	require.NoError(t, err)
	assert.Equal(t, "r2", got.RefreshToken)
}

func TestTokenStoreOverwritesCorruptBlob(t *testing.T) {
	secrets := newSecrets(t, false)
	require.NoError(t, secrets.Set(KeyTokens, "{not json"))
	tokens := tokenStore{secrets: secrets}

	_, err := tokens.load()
	require.Error(t, err)

	require.NoError(t, tokens.save(TokenSet{AccessToken: "a1"}))
	got, err := tokens.load()
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AccessToken)
}

func TestTokenStoreEmptyMeansNotConnected(t *testing.T) {
	secrets := newSecrets(t, false)
	tokens := tokenStore{secrets: secrets}

	_, err := tokens.load()
	assert.ErrorIs(t, err, errNoToken)

	require.NoError(t, secrets.Set(KeyTokens, "  "))
	_, err = tokens.load()
	assert.ErrorIs(t, err, errNoToken)

	require.NoError(t, secrets.Set(KeyTokens, "{}"))
	_, err = tokens.load()
	assert.ErrorIs(t, err, errNoToken)
}

func TestTokenSetFromReadsScope(t *testing.T) {
	tok := (&oauth2.Token{AccessToken: "a", TokenType: "Bearer"}).WithExtra(map[string]any{
		"scope": "openid https://www.googleapis.com/auth/gmail.send",
	})
	set := tokenSetFrom(tok)
	assert.Equal(t, []string{"openid", "https://www.googleapis.com/auth/gmail.send"}, set.Scopes)
	assert.Equal(t, "a", set.Token().AccessToken)
}

func TestSaveClientCredential(t *testing.T) {
	secrets := newSecrets(t, false)

	err := SaveClientCredential(secrets, ClientCredential{ClientID: " id ", ClientSecret: ""})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindConfiguration))

	require.NoError(t, SaveClientCredential(secrets, ClientCredential{ClientID: " id ", ClientSecret: " secret "}))
	cred, err := loadClientCredential(secrets)
	require.NoError(t, err)
	assert.Equal(t, ClientCredential{ClientID: "id", ClientSecret: "secret"}, cred)
}
