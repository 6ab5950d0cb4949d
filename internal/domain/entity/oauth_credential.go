package entity

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/oauth2"
)

// OAuthCredential token almacenado por (proveedor, usuario). A lo sumo uno vigente por clave.
type OAuthCredential struct {
	Provider       string    `json:"provider" yaml:"provider"`
	UserID         *int      `json:"userId,omitempty" yaml:"userId,omitempty"`
	AccessToken    string    `json:"accessToken" yaml:"accessToken"`
	RefreshToken   string    `json:"refreshToken,omitempty" yaml:"refreshToken,omitempty"`
	DateCreatedUTC time.Time `json:"dateCreatedUtc" yaml:"dateCreatedUtc"`
	DateExpiresUTC time.Time `json:"dateExpiresUtc" yaml:"dateExpiresUtc"`
}

// ProviderKey forma canónica del nombre de proveedor; guardar, leer y borrar la usan por igual.
func ProviderKey(name string) string {
	return strings.TrimSpace(name)
}

// NewOAuthCredential construye la credencial a partir de un token emitido por el proveedor.
func NewOAuthCredential(provider string, tok *oauth2.Token) *OAuthCredential {
	c := &OAuthCredential{Provider: provider}
	if tok != nil {
		c.AccessToken = tok.AccessToken
		c.RefreshToken = tok.RefreshToken
		c.DateExpiresUTC = tok.Expiry.UTC()
	}
	return c
}

// Token convierte la credencial al tipo de golang.org/x/oauth2 para clientes de proveedores.
func (c *OAuthCredential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.DateExpiresUTC,
	}
}

// Expired indica si el token ya venció respecto a now.
func (c *OAuthCredential) Expired(now time.Time) bool {
	return !c.DateExpiresUTC.IsZero() && !now.Before(c.DateExpiresUTC)
}

// Clone devuelve una copia profunda.
func (c *OAuthCredential) Clone() *OAuthCredential {
	out := *c
	if c.UserID != nil {
		v := *c.UserID
		out.UserID = &v
	}
	return &out
}

// Validate verifica las invariantes de la credencial.
func (c *OAuthCredential) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.By(notBlank), validation.RuneLength(1, 64)),
	)
}
