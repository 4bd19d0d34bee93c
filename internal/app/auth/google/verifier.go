// Package google exchanges Google authorization codes for verified identities.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	"github.com/Miraines/AquaTrack/auth-service/internal/infra/config"
	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

const (
	Issuer  = "https://accounts.google.com"
	JWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

	ScopeEmail   = "https://www.googleapis.com/auth/userinfo.email"
	ScopeProfile = "https://www.googleapis.com/auth/userinfo.profile"
)

// codeExchanger is satisfied by *oauth2.Config.
type codeExchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

type Verifier struct {
	oauth    codeExchanger
	idTokens idTokenVerifier
	log      *zap.Logger
}

// New builds a verifier against Google's production endpoints. Signing keys
// are fetched lazily on first use.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) *Verifier {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Endpoint:     googleoauth.Endpoint,
		Scopes:       []string{ScopeEmail, ScopeProfile},
	}
	keySet := oidc.NewRemoteKeySet(ctx, JWKSURL)
	idv := oidc.NewVerifier(Issuer, keySet, &oidc.Config{ClientID: cfg.GoogleClientID})

	return NewWith(oauthCfg, idv, log)
}

func NewWith(oauth codeExchanger, idTokens idTokenVerifier, log *zap.Logger) *Verifier {
	return &Verifier{oauth: oauth, idTokens: idTokens, log: log}
}

func (v *Verifier) AuthCodeURL(state string) string {
	return v.oauth.AuthCodeURL(state)
}

// Verify turns an authorization code into the identity Google asserts for it.
// Rejections by Google or an unusable ID token yield ErrInvalidGrant; any other
// failure yields ErrVerificationFailed. Provider details are only logged.
func (v *Verifier) Verify(ctx context.Context, code string) (model.FederatedIdentity, error) {
	decoded, err := url.PathUnescape(code)
	if err != nil {
		decoded = code
	}

	tok, err := v.oauth.Exchange(ctx, decoded)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode == "invalid_grant" {
			v.log.Warn("google rejected authorization code", zap.String("error", rErr.ErrorDescription))
			return model.FederatedIdentity{}, invalidGrant("code rejected")
		}
		v.log.Error("failed to exchange google code", zap.Error(err))
		return model.FederatedIdentity{}, customErrors.ErrVerificationFailed
	}

	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		v.log.Warn("no id_token in response from google")
		return model.FederatedIdentity{}, invalidGrant("no id_token")
	}

	idToken, err := v.idTokens.Verify(ctx, rawIDToken)
	if err != nil {
		v.log.Warn("failed to verify google id_token", zap.Error(err))
		return model.FederatedIdentity{}, invalidGrant("id_token rejected")
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		v.log.Error("failed to decode google id_token claims", zap.Error(err))
		return model.FederatedIdentity{}, customErrors.ErrVerificationFailed
	}
	if claims.Email == "" || (claims.EmailVerified != nil && !*claims.EmailVerified) {
		return model.FederatedIdentity{}, invalidGrant("email missing or unverified")
	}

	v.log.Info("successfully verified google token")
	return model.FederatedIdentity{
		Email:     claims.Email,
		GivenName: claims.GivenName,
		Picture:   claims.Picture,
		Subject:   idToken.Subject,
	}, nil
}

func invalidGrant(reason string) error {
	return fmt.Errorf("%w: %s", customErrors.ErrInvalidGrant, reason)
}
