package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/tokenkeeper/internal/database"
	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	"github.com/allisson/tokenkeeper/internal/oauth/repository"
)

const authorizationColumns = `id, application_id, subject, type, status, scopes, properties, created_at`

// MySQLAuthorizationRepository implements authorization persistence for MySQL.
type MySQLAuthorizationRepository struct {
	db *sql.DB
}

// Create inserts a new authorization.
func (m *MySQLAuthorizationRepository) Create(ctx context.Context, authz *oauthDomain.Authorization) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(authz.ID, "authorization id")
	if err != nil {
		return err
	}

	args, err := authorizationArgs(authz)
	if err != nil {
		return err
	}

	query := `INSERT INTO authorizations (` + authorizationColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := querier.ExecContext(ctx, query, append([]any{id}, args...)...); err != nil {
		return apperrors.Wrap(err, "failed to create authorization")
	}
	return nil
}

// Update overwrites the mutable columns of an existing authorization. Status changes
// only through Revoke.
func (m *MySQLAuthorizationRepository) Update(ctx context.Context, authz *oauthDomain.Authorization) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(authz.ID, "authorization id")
	if err != nil {
		return err
	}

	args, err := authorizationUpdateArgs(authz)
	if err != nil {
		return err
	}

	query := `UPDATE authorizations
			  SET application_id = ?,
				  subject = ?,
				  type = ?,
				  scopes = ?,
				  properties = ?
			  WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, append(args, id)...); err != nil {
		return apperrors.Wrap(err, "failed to update authorization")
	}
	return nil
}

// Delete removes an authorization. Its tokens cascade.
func (m *MySQLAuthorizationRepository) Delete(ctx context.Context, authzID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(authzID, "authorization id")
	if err != nil {
		return err
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM authorizations WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete authorization")
	}

	return requireRow(result, oauthDomain.ErrAuthorizationNotFound, "authorization")
}

// Get retrieves an authorization by ID.
func (m *MySQLAuthorizationRepository) Get(
	ctx context.Context,
	authzID uuid.UUID,
) (*oauthDomain.Authorization, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(authzID, "authorization id")
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + authorizationColumns + ` FROM authorizations WHERE id = ?`

	authz, err := scanAuthorization(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrAuthorizationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get authorization")
	}
	return authz, nil
}

// List retrieves authorizations matching filter, newest first.
func (m *MySQLAuthorizationRepository) List(
	ctx context.Context,
	filter oauthDomain.AuthorizationFilter,
	offset, limit int,
) ([]*oauthDomain.Authorization, error) {
	querier := database.GetTx(ctx, m.db)

	where, err := authorizationWhere(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + authorizationColumns + ` FROM authorizations` + where.clause() +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, append(where.args, limit, offset)...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list authorizations")
	}
	defer func() {
		_ = rows.Close()
	}()

	authzs := make([]*oauthDomain.Authorization, 0)
	for rows.Next() {
		authz, err := scanAuthorization(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan authorization")
		}
		authzs = append(authzs, authz)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating authorizations")
	}

	return authzs, nil
}

// Count returns the number of authorizations matching filter.
func (m *MySQLAuthorizationRepository) Count(
	ctx context.Context,
	filter oauthDomain.AuthorizationFilter,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	where, err := authorizationWhere(filter)
	if err != nil {
		return 0, err
	}

	var count int64
	query := `SELECT COUNT(*) FROM authorizations` + where.clause()
	if err := querier.QueryRowContext(ctx, query, where.args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count authorizations")
	}
	return count, nil
}

// Revoke moves a valid authorization to revoked. It returns false when the
// authorization does not exist or was already revoked.
func (m *MySQLAuthorizationRepository) Revoke(ctx context.Context, authzID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(authzID, "authorization id")
	if err != nil {
		return false, err
	}

	result, err := querier.ExecContext(
		ctx,
		`UPDATE authorizations SET status = ? WHERE id = ? AND status = ?`,
		string(oauthDomain.AuthorizationStatusRevoked),
		id,
		string(oauthDomain.AuthorizationStatusValid),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to revoke authorization")
	}
	return changed(result)
}

func authorizationWhere(filter oauthDomain.AuthorizationFilter) (*whereBuilder, error) {
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
	if filter.Status != "" {
		where.add("status", string(filter.Status))
	}
	return where, nil
}

func authorizationArgs(authz *oauthDomain.Authorization) ([]any, error) {
	appID, err := nullableUUIDArg(authz.ApplicationID, "application id")
	if err != nil {
		return nil, err
	}
	scopes, err := repository.EncodeStrings(authz.Scopes)
	if err != nil {
		return nil, err
	}
	properties, err := repository.EncodeProperties(authz.Properties)
	if err != nil {
		return nil, err
	}

	return []any{
		appID,
		authz.Subject,
		string(authz.Type),
		string(authz.Status),
		scopes,
		properties,
		authz.CreatedAt,
	}, nil
}

func authorizationUpdateArgs(authz *oauthDomain.Authorization) ([]any, error) {
	appID, err := nullableUUIDArg(authz.ApplicationID, "application id")
	if err != nil {
		return nil, err
	}
	scopes, err := repository.EncodeStrings(authz.Scopes)
	if err != nil {
		return nil, err
	}
	properties, err := repository.EncodeProperties(authz.Properties)
	if err != nil {
		return nil, err
	}

	return []any{appID, authz.Subject, string(authz.Type), scopes, properties}, nil
}

func scanAuthorization(row rowScanner) (*oauthDomain.Authorization, error) {
	var authz oauthDomain.Authorization
	var idBytes, appIDBytes []byte
	var authzType, status string
	var scopes, properties []byte

	if err := row.Scan(
		&idBytes,
		&appIDBytes,
		&authz.Subject,
		&authzType,
		&status,
		&scopes,
		&properties,
		&authz.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := authz.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal authorization id")
	}

	var err error
	if authz.ApplicationID, err = unmarshalNullableUUID(appIDBytes, "application id"); err != nil {
		return nil, err
	}

	authz.Type = oauthDomain.AuthorizationType(authzType)
	authz.Status = oauthDomain.AuthorizationStatus(status)

	if authz.Scopes, err = repository.DecodeStrings(scopes); err != nil {
		return nil, err
	}
	if authz.Properties, err = repository.DecodeProperties(properties); err != nil {
		return nil, err
	}

	return &authz, nil
}

// NewMySQLAuthorizationRepository creates a new MySQL authorization repository.
func NewMySQLAuthorizationRepository(db *sql.DB) *MySQLAuthorizationRepository {
	return &MySQLAuthorizationRepository{db: db}
}
