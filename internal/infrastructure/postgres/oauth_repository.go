package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/partsbin/internal/domain/entity"
)

const oauthColumns = `provider, user_id, access_token, refresh_token, date_created_utc, date_expires_utc`

// OAuthRepo credenciales de proveedores externos, clave (provider, user_id).
type OAuthRepo struct {
	q Querier
}

// NewOAuthRepository construye el adaptador. Acepta pool o tx (Querier).
func NewOAuthRepository(q Querier) *OAuthRepo {
	return &OAuthRepo{q: q}
}

func scanOAuth(row pgx.Row) (*entity.OAuthCredential, error) {
	var c entity.OAuthCredential
	if err := row.Scan(&c.Provider, &c.UserID, &c.AccessToken, &c.RefreshToken, &c.DateCreatedUTC, &c.DateExpiresUTC); err != nil {
		return nil, err
	}
	c.DateCreatedUTC = c.DateCreatedUTC.UTC()
	c.DateExpiresUTC = c.DateExpiresUTC.UTC()
	return &c, nil
}

// Get credencial exacta del dueño.
func (r *OAuthRepo) Get(ctx context.Context, provider string, uc *entity.UserContext) (*entity.OAuthCredential, error) {
	a := args{entity.ProviderKey(provider)}
	c, err := scanOAuth(r.q.QueryRow(ctx,
		`SELECT `+oauthColumns+` FROM oauth_credentials WHERE provider = $1 AND `+ownedBy("user_id", uc, &a), a...))
	if err != nil {
		return nil, translate("get oauth credential", err)
	}
	return c, nil
}

// oauthConflictTarget índice parcial que corresponde al dueño de la credencial.
func oauthConflictTarget(owner *int) string {
	if owner == nil {
		return `(provider) WHERE user_id IS NULL`
	}
	return `(provider, user_id) WHERE user_id IS NOT NULL`
}

// Upsert inserta o reemplaza; la fecha de creación original se conserva.
func (r *OAuthRepo) Upsert(ctx context.Context, c *entity.OAuthCredential) (*entity.OAuthCredential, error) {
	out, err := scanOAuth(r.q.QueryRow(ctx, `
		INSERT INTO oauth_credentials (provider, user_id, access_token, refresh_token, date_created_utc, date_expires_utc)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT `+oauthConflictTarget(c.UserID)+` DO UPDATE
			SET access_token = EXCLUDED.access_token,
			    refresh_token = EXCLUDED.refresh_token,
			    date_expires_utc = EXCLUDED.date_expires_utc
		RETURNING `+oauthColumns,
		c.Provider, c.UserID, c.AccessToken, c.RefreshToken, c.DateCreatedUTC, c.DateExpiresUTC))
	if err != nil {
		return nil, translate("save oauth credential", err)
	}
	return out, nil
}

// Delete idempotente.
func (r *OAuthRepo) Delete(ctx context.Context, provider string, uc *entity.UserContext) error {
	a := args{entity.ProviderKey(provider)}
	if _, err := r.q.Exec(ctx,
		`DELETE FROM oauth_credentials WHERE provider = $1 AND `+ownedBy("user_id", uc, &a), a...); err != nil {
		return translate("remove oauth credential", err)
	}
	return nil
}

// All credenciales exactas del dueño (instantánea).
func (r *OAuthRepo) All(ctx context.Context, uc *entity.UserContext) ([]*entity.OAuthCredential, error) {
	var a args
	rows, err := r.q.Query(ctx,
		`SELECT `+oauthColumns+` FROM oauth_credentials WHERE `+ownedBy("user_id", uc, &a)+` ORDER BY provider`, a...)
	if err != nil {
		return nil, translate("list oauth credentials", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.OAuthCredential, error) {
		return scanOAuth(row)
	})
	if err != nil {
		return nil, translate("list oauth credentials", err)
	}
	return list, nil
}
