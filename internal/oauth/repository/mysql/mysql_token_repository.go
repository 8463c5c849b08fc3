package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/tokenkeeper/internal/database"
	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	"github.com/allisson/tokenkeeper/internal/oauth/repository"
)

const tokenColumns = `id, application_id, authorization_id, subject, type, status, payload,
			  reference_id, expires_at, redemption_date, properties, created_at`

// revokeBatchSize bounds the ids bound into a single RevokeMany statement.
const revokeBatchSize = 1000

// MySQLTokenRepository implements OAuth token persistence for MySQL.
// Status transitions are conditional updates on status = 'valid'.
type MySQLTokenRepository struct {
	db *sql.DB
}

// Create inserts a new token.
func (m *MySQLTokenRepository) Create(ctx context.Context, token *oauthDomain.Token) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(token.ID, "token id")
	if err != nil {
		return err
	}

	args, err := tokenArgs(token)
	if err != nil {
		return err
	}

	query := `INSERT INTO tokens (` + tokenColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := querier.ExecContext(ctx, query, append([]any{id}, args...)...); err != nil {
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Update overwrites the mutable columns of an existing token. Status and redemption
// date are left alone; they change only through Revoke, Redeem and RevokeMany.
func (m *MySQLTokenRepository) Update(ctx context.Context, token *oauthDomain.Token) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(token.ID, "token id")
	if err != nil {
		return err
	}

	args, err := tokenUpdateArgs(token)
	if err != nil {
		return err
	}

	query := `UPDATE tokens
			  SET application_id = ?,
				  authorization_id = ?,
				  subject = ?,
				  type = ?,
				  payload = ?,
				  reference_id = ?,
				  expires_at = ?,
				  properties = ?
			  WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, append(args, id)...); err != nil {
		return apperrors.Wrap(err, "failed to update token")
	}
	return nil
}

// Delete removes a token.
func (m *MySQLTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(tokenID, "token id")
	if err != nil {
		return err
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete token")
	}

	return requireRow(result, oauthDomain.ErrTokenNotFound, "token")
}

// Get retrieves a token by ID.
func (m *MySQLTokenRepository) Get(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(tokenID, "token id")
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = ?`

	token, err := scanToken(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token")
	}
	return token, nil
}

// GetByReferenceID retrieves a token by its opaque reference handle.
func (m *MySQLTokenRepository) GetByReferenceID(
	ctx context.Context,
	referenceID string,
) (*oauthDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE reference_id = ?`

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
func (m *MySQLTokenRepository) List(
	ctx context.Context,
	filter oauthDomain.TokenFilter,
	offset, limit int,
) ([]*oauthDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	where, err := tokenWhere(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + tokenColumns + ` FROM tokens` + where.clause() +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, append(where.args, limit, offset)...)
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
func (m *MySQLTokenRepository) Count(ctx context.Context, filter oauthDomain.TokenFilter) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	where, err := tokenWhere(filter)
	if err != nil {
		return 0, err
	}

	var count int64
	query := `SELECT COUNT(*) FROM tokens` + where.clause()
	if err := querier.QueryRowContext(ctx, query, where.args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count tokens")
	}
	return count, nil
}

// Revoke moves a valid token to revoked. Returns false when no row changed.
func (m *MySQLTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(tokenID, "token id")
	if err != nil {
		return false, err
	}

	result, err := querier.ExecContext(
		ctx,
		`UPDATE tokens SET status = ? WHERE id = ? AND status = ?`,
		string(oauthDomain.TokenStatusRevoked),
		id,
		string(oauthDomain.TokenStatusValid),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to revoke token")
	}
	return changed(result)
}

// Redeem moves a valid token to redeemed and stamps its redemption date.
func (m *MySQLTokenRepository) Redeem(ctx context.Context, tokenID uuid.UUID, redeemedAt time.Time) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(tokenID, "token id")
	if err != nil {
		return false, err
	}

	result, err := querier.ExecContext(
		ctx,
		`UPDATE tokens SET status = ?, redemption_date = ? WHERE id = ? AND status = ?`,
		string(oauthDomain.TokenStatusRedeemed),
		redeemedAt,
		id,
		string(oauthDomain.TokenStatusValid),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to redeem token")
	}
	return changed(result)
}

// RevokeMany revokes every still-valid token in tokenIDs and returns how many rows
// changed. Ids go out in batches of revokeBatchSize to stay under the prepared
// statement placeholder limit (65535).
func (m *MySQLTokenRepository) RevokeMany(ctx context.Context, tokenIDs []uuid.UUID) (int64, error) {
	var total int64
	for start := 0; start < len(tokenIDs); start += revokeBatchSize {
		end := min(start+revokeBatchSize, len(tokenIDs))
		count, err := m.revokeBatch(ctx, tokenIDs[start:end])
		if err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

func (m *MySQLTokenRepository) revokeBatch(ctx context.Context, tokenIDs []uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	args := make([]any, 0, len(tokenIDs)+2)
	args = append(args, string(oauthDomain.TokenStatusRevoked))
	for _, tokenID := range tokenIDs {
		id, err := marshalUUID(tokenID, "token id")
		if err != nil {
			return 0, err
		}
		args = append(args, id)
	}
	args = append(args, string(oauthDomain.TokenStatusValid))

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(tokenIDs)), ", ")
	query := `UPDATE tokens SET status = ? WHERE id IN (` + placeholders + `) AND status = ?`

	result, err := querier.ExecContext(ctx, query, args...)
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
func (m *MySQLTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(
		ctx,
		`DELETE FROM tokens WHERE expires_at IS NOT NULL AND expires_at < ?`,
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
func (m *MySQLTokenRepository) CountExpired(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM tokens WHERE expires_at IS NOT NULL AND expires_at < ?`,
		before,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count expired tokens")
	}
	return count, nil
}

func tokenWhere(filter oauthDomain.TokenFilter) (*whereBuilder, error) {
	where := &whereBuilder{}
	if filter.Subject != "" {
		where.add("subject", filter.Subject)
	}
	if filter.ApplicationID != nil {
		appID, err := marshalUUID(*filter.ApplicationID, "application id")
		if err != nil {
			return nil, err
		}
		where.add("application_id", appID)
	}
	if filter.AuthorizationID != nil {
		authzID, err := marshalUUID(*filter.AuthorizationID, "authorization id")
		if err != nil {
			return nil, err
		}
		where.add("authorization_id", authzID)
	}
	if filter.Status != "" {
		where.add("status", string(filter.Status))
	}
	if filter.Type != "" {
		where.add("type", string(filter.Type))
	}
	return where, nil
}

func tokenArgs(token *oauthDomain.Token) ([]any, error) {
	appID, err := nullableUUIDArg(token.ApplicationID, "application id")
	if err != nil {
		return nil, err
	}
	authzID, err := nullableUUIDArg(token.AuthorizationID, "authorization id")
	if err != nil {
		return nil, err
	}
	properties, err := repository.EncodeProperties(token.Properties)
	if err != nil {
		return nil, err
	}

	return []any{
		appID,
		authzID,
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
	appID, err := nullableUUIDArg(token.ApplicationID, "application id")
	if err != nil {
		return nil, err
	}
	authzID, err := nullableUUIDArg(token.AuthorizationID, "authorization id")
	if err != nil {
		return nil, err
	}
	properties, err := repository.EncodeProperties(token.Properties)
	if err != nil {
		return nil, err
	}

	return []any{
		appID,
		authzID,
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
	var idBytes, appIDBytes, authzIDBytes []byte
	var tokenType, status string
	var properties []byte

	if err := row.Scan(
		&idBytes,
		&appIDBytes,
		&authzIDBytes,
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

	if err := token.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal token id")
	}

	var err error
	if token.ApplicationID, err = unmarshalNullableUUID(appIDBytes, "application id"); err != nil {
		return nil, err
	}
	if token.AuthorizationID, err = unmarshalNullableUUID(authzIDBytes, "authorization id"); err != nil {
		return nil, err
	}

	token.Type = oauthDomain.TokenType(tokenType)
	token.Status = oauthDomain.TokenStatus(status)

	if token.Properties, err = repository.DecodeProperties(properties); err != nil {
		return nil, err
	}

	return &token, nil
}

// NewMySQLTokenRepository creates a new MySQL token repository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db}
}
