package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/tokenkeeper/internal/database"
	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	"github.com/allisson/tokenkeeper/internal/oauth/repository"
)

const tokenColumns = `id, application_id, authorization_id, subject, type, status, payload,
			  reference_id, expires_at, redemption_date, properties, created_at`

// PostgreSQLTokenRepository implements OAuth token persistence for PostgreSQL.
// Status transitions are conditional updates on status = 'valid'.
type PostgreSQLTokenRepository struct {
	db *sql.DB
}

// Create inserts a new token.
func (p *PostgreSQLTokenRepository) Create(ctx context.Context, token *oauthDomain.Token) error {
	querier := database.GetTx(ctx, p.db)

	args, err := tokenArgs(token)
	if err != nil {
		return err
	}

	query := `INSERT INTO tokens (` + tokenColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := querier.ExecContext(ctx, query, append([]any{token.ID}, args...)...); err != nil {
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Update overwrites the mutable columns of an existing token. Status and redemption
// date are left alone; they change only through Revoke, Redeem and RevokeMany.
func (p *PostgreSQLTokenRepository) Update(ctx context.Context, token *oauthDomain.Token) error {
	querier := database.GetTx(ctx, p.db)

	args, err := tokenUpdateArgs(token)
	if err != nil {
		return err
	}

	query := `UPDATE tokens
			  SET application_id = $1,
				  authorization_id = $2,
				  subject = $3,
				  type = $4,
				  payload = $5,
				  reference_id = $6,
				  expires_at = $7,
				  properties = $8
			  WHERE id = $9`

	result, err := querier.ExecContext(ctx, query, append(args, token.ID)...)
	if err != nil {
		return apperrors.Wrap(err, "failed to update token")
	}

	return requireRow(result, oauthDomain.ErrTokenNotFound, "token")
}

// Delete removes a token.
func (p *PostgreSQLTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM tokens WHERE id = $1`, tokenID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete token")
	}

	return requireRow(result, oauthDomain.ErrTokenNotFound, "token")
}

// Get retrieves a token by ID.
func (p *PostgreSQLTokenRepository) Get(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`

	token, err := scanToken(querier.QueryRowContext(ctx, query, tokenID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token")
	}
	return token, nil
}

// GetByReferenceID retrieves a token by its opaque reference handle.
func (p *PostgreSQLTokenRepository) GetByReferenceID(
	ctx context.Context,
	referenceID string,
) (*oauthDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE reference_id = $1`

	token, err := scanToken(querier.QueryRowContext(ctx, query, referenceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token by reference id")
	}
	return token, nil
}

// List retrieves tokens matching filter, newest first.
func (p *PostgreSQLTokenRepository) List(
	ctx context.Context,
	filter oauthDomain.TokenFilter,
	offset, limit int,
) ([]*oauthDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	where := tokenWhere(filter)
	query := `SELECT ` + tokenColumns + ` FROM tokens` + where.clause() +
		` ORDER BY created_at DESC LIMIT ` + where.next(limit) + ` OFFSET ` + where.next(offset)

	rows, err := querier.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tokens")
	}
	defer func() {
		_ = rows.Close()
	}()

	tokens := make([]*oauthDomain.Token, 0)
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan token")
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating tokens")
	}

	return tokens, nil
}

// Count returns the number of tokens matching filter.
func (p *PostgreSQLTokenRepository) Count(ctx context.Context, filter oauthDomain.TokenFilter) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	where := tokenWhere(filter)
	query := `SELECT COUNT(*) FROM tokens` + where.clause()

	var count int64
	if err := querier.QueryRowContext(ctx, query, where.args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count tokens")
	}
	return count, nil
}

// Revoke moves a valid token to revoked. Returns false when no row changed.
func (p *PostgreSQLTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tokens SET status = $1 WHERE id = $2 AND status = $3`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(oauthDomain.TokenStatusRevoked),
		tokenID,
		string(oauthDomain.TokenStatusValid),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to revoke token")
	}
	return changed(result)
}

// Redeem moves a valid token to redeemed and stamps its redemption date.
// Returns false when the token was already consumed or revoked.
func (p *PostgreSQLTokenRepository) Redeem(
	ctx context.Context,
	tokenID uuid.UUID,
	redeemedAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tokens SET status = $1, redemption_date = $2 WHERE id = $3 AND status = $4`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(oauthDomain.TokenStatusRedeemed),
		redeemedAt,
		tokenID,
		string(oauthDomain.TokenStatusValid),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to redeem token")
	}
	return changed(result)
}

// RevokeMany revokes every still-valid token in tokenIDs in one statement and
// returns how many rows changed.
func (p *PostgreSQLTokenRepository) RevokeMany(ctx context.Context, tokenIDs []uuid.UUID) (int64, error) {
	if len(tokenIDs) == 0 {
		return 0, nil
	}

	querier := database.GetTx(ctx, p.db)

	ids := make([]string, len(tokenIDs))
	for i, id := range tokenIDs {
		ids[i] = id.String()
	}

	query := `UPDATE tokens SET status = $1 WHERE id = ANY($2::uuid[]) AND status = $3`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(oauthDomain.TokenStatusRevoked),
		pq.Array(ids),
		string(oauthDomain.TokenStatusValid),
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to revoke tokens")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

// DeleteExpired removes tokens whose expiry is before the given time.
func (p *PostgreSQLTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(
		ctx,
		`DELETE FROM tokens WHERE expires_at IS NOT NULL AND expires_at < $1`,
		before,
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired tokens")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

// CountExpired returns how many tokens DeleteExpired would remove.
func (p *PostgreSQLTokenRepository) CountExpired(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM tokens WHERE expires_at IS NOT NULL AND expires_at < $1`,
		before,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count expired tokens")
	}
	return count, nil
}

func changed(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get affected rows")
	}
	return rows > 0, nil
}

func tokenWhere(filter oauthDomain.TokenFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter.Subject != "" {
		where.add("subject", filter.Subject)
	}
	if filter.ApplicationID != nil {
		where.add("application_id", *filter.ApplicationID)
	}
	if filter.AuthorizationID != nil {
		where.add("authorization_id", *filter.AuthorizationID)
	}
	if filter.Status != "" {
		where.add("status", string(filter.Status))
	}
	if filter.Type != "" {
		where.add("type", string(filter.Type))
	}
	return where
}

func tokenArgs(token *oauthDomain.Token) ([]any, error) {
	properties, err := repository.EncodeProperties(token.Properties)
	if err != nil {
		return nil, err
	}

	return []any{
		nullUUID(token.ApplicationID),
		nullUUID(token.AuthorizationID),
		token.Subject,
		string(token.Type),
		string(token.Status),
		token.Payload,
		token.ReferenceID,
		token.ExpiresAt,
		token.RedemptionDate,
		properties,
		token.CreatedAt,
	}, nil
}

func tokenUpdateArgs(token *oauthDomain.Token) ([]any, error) {
	properties, err := repository.EncodeProperties(token.Properties)
	if err != nil {
		return nil, err
	}

	return []any{
		nullUUID(token.ApplicationID),
		nullUUID(token.AuthorizationID),
		token.Subject,
		string(token.Type),
		token.Payload,
		token.ReferenceID,
		token.ExpiresAt,
		properties,
	}, nil
}

func scanToken(row rowScanner) (*oauthDomain.Token, error) {
	var token oauthDomain.Token
	var applicationID, authorizationID uuid.NullUUID
	var tokenType, status string
	var properties []byte

	if err := row.Scan(
		&token.ID,
		&applicationID,
		&authorizationID,
		&token.Subject,
		&tokenType,
		&status,
		&token.Payload,
		&token.ReferenceID,
		&token.ExpiresAt,
		&token.RedemptionDate,
		&properties,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}

	token.ApplicationID = uuidPtr(applicationID)
	token.AuthorizationID = uuidPtr(authorizationID)
	token.Type = oauthDomain.TokenType(tokenType)
	token.Status = oauthDomain.TokenStatus(status)

	var err error
	if token.Properties, err = repository.DecodeProperties(properties); err != nil {
		return nil, err
	}

	return &token, nil
}

// NewPostgreSQLTokenRepository creates a new PostgreSQL token repository.
func NewPostgreSQLTokenRepository(db *sql.DB) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{db: db}
}
