package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

func tokenRowColumns() []string {
	return []string{
		"id", "application_id", "authorization_id", "subject", "type", "status", "payload",
		"reference_id", "expires_at", "redemption_date", "properties", "created_at",
	}
}

func TestPostgreSQLTokenRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgreSQLTokenRepository(db)

	now := time.Now().UTC()
	expiresAt := now.Add(time.Hour)
	appID := uuid.Must(uuid.NewV7())
	token := &oauthDomain.Token{
		ID:            uuid.Must(uuid.NewV7()),
		ApplicationID: &appID,
		Subject:       "user-1",
		Type:          oauthDomain.TokenTypeAccess,
		Status:        oauthDomain.TokenStatusValid,
		Payload:       "eyJhbGciOi...",
		ExpiresAt:     &expiresAt,
		CreatedAt:     now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tokens")).
		WithArgs(
			token.ID.String(),
			appID.String(),
			nil,
			"user-1",
			"access_token",
			"valid",
			"eyJhbGciOi...",
			nil,
			expiresAt,
			nil,
			"{}",
			now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), token))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTokenRepository_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	tokenID := uuid.Must(uuid.NewV7())
	authzID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		rows := sqlmock.NewRows(tokenRowColumns()).AddRow(
			tokenID.String(), nil, authzID.String(), "user-1", "refresh_token", "valid", "payload",
			"ref-123", now.Add(time.Hour), nil, []byte(`{}`), now,
		)
		mock.ExpectQuery(regexp.QuoteMeta("FROM tokens WHERE id = $1")).
			WithArgs(tokenID.String()).
			WillReturnRows(rows)

		token, err := repo.Get(ctx, tokenID)
		require.NoError(t, err)
		assert.Equal(t, tokenID, token.ID)
		assert.Nil(t, token.ApplicationID)
		require.NotNil(t, token.AuthorizationID)
		assert.Equal(t, authzID, *token.AuthorizationID)
		assert.Equal(t, oauthDomain.TokenTypeRefresh, token.Type)
		require.NotNil(t, token.ReferenceID)
		assert.Equal(t, "ref-123", *token.ReferenceID)
		require.NotNil(t, token.ExpiresAt)
		assert.Nil(t, token.RedemptionDate)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM tokens WHERE id = $1")).
			WillReturnError(sql.ErrNoRows)

		token, err := repo.Get(ctx, tokenID)
		assert.Nil(t, token)
		assert.ErrorIs(t, err, oauthDomain.ErrTokenNotFound)
	})

	t.Run("Error_Database", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM tokens WHERE id = $1")).
			WillReturnError(errors.New("timeout"))

		_, err := repo.Get(ctx, tokenID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, oauthDomain.ErrTokenNotFound)
	})
}

func TestPostgreSQLTokenRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgreSQLTokenRepository(db)

	filter := oauthDomain.TokenFilter{Subject: "user-1", Status: oauthDomain.TokenStatusValid}

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM tokens WHERE subject = $1 AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4",
	)).
		WithArgs("user-1", "valid", 100, 0).
		WillReturnRows(sqlmock.NewRows(tokenRowColumns()))

	tokens, err := repo.List(context.Background(), filter, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, tokens)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLTokenRepository_Count(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgreSQLTokenRepository(db)
	appID := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tokens WHERE application_id = $1 AND type = $2")).
		WithArgs(appID.String(), "access_token").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.Count(
		context.Background(),
		oauthDomain.TokenFilter{ApplicationID: &appID, Type: oauthDomain.TokenTypeAccess},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPostgreSQLTokenRepository_Revoke(t *testing.T) {
	ctx := context.Background()
	tokenID := uuid.Must(uuid.NewV7())

	t.Run("Success_RowChanged", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE tokens SET status = $1 WHERE id = $2 AND status = $3")).
			WithArgs("revoked", tokenID.String(), "valid").
			WillReturnResult(sqlmock.NewResult(0, 1))

		revoked, err := repo.Revoke(ctx, tokenID)
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("Success_AlreadyTerminal", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE tokens SET status = $1")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		revoked, err := repo.Revoke(ctx, tokenID)
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}

func TestPostgreSQLTokenRepository_Update(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	expiresAt := now.Add(time.Hour)
	token := &oauthDomain.Token{
		ID:             uuid.Must(uuid.NewV7()),
		Subject:        "user-1",
		Type:           oauthDomain.TokenTypeRefresh,
		Status:         oauthDomain.TokenStatusValid,
		Payload:        "rotated-payload",
		ExpiresAt:      &expiresAt,
		RedemptionDate: &now,
		CreatedAt:      now,
	}

	t.Run("Success_StatusAndRedemptionAreNotWritten", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectExec(`^UPDATE tokens SET application_id = \$1, authorization_id = \$2, subject = \$3, ` +
			`type = \$4, payload = \$5, reference_id = \$6, expires_at = \$7, properties = \$8 WHERE id = \$9$`).
			WithArgs(nil, nil, "user-1", "refresh_token", "rotated-payload", nil, expiresAt, "{}", token.ID.String()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, token))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE tokens")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, token)
		assert.ErrorIs(t, err, oauthDomain.ErrTokenNotFound)
	})
}

func TestPostgreSQLTokenRepository_Redeem(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgreSQLTokenRepository(db)
	tokenID := uuid.Must(uuid.NewV7())
	redeemedAt := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tokens SET status = $1, redemption_date = $2 WHERE id = $3 AND status = $4")).
		WithArgs("redeemed", redeemedAt, tokenID.String(), "valid").
		WillReturnResult(sqlmock.NewResult(0, 1))

	redeemed, err := repo.Redeem(context.Background(), tokenID, redeemedAt)
	require.NoError(t, err)
	assert.True(t, redeemed)
}

func TestPostgreSQLTokenRepository_RevokeMany(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_EmptyInputSkipsDatabase", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		count, err := repo.RevokeMany(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewPostgreSQLTokenRepository(db)

		ids := []uuid.UUID{uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())}
		mock.ExpectExec(regexp.QuoteMeta("WHERE id = ANY($2::uuid[]) AND status = $3")).
			WithArgs("revoked", sqlmock.AnyArg(), "valid").
			WillReturnResult(sqlmock.NewResult(0, 2))

		count, err := repo.RevokeMany(ctx, ids)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestPostgreSQLTokenRepository_DeleteAndCountExpired(t *testing.T) {
	ctx := context.Background()
	db, mock := setupMockDB(t)
	repo := NewPostgreSQLTokenRepository(db)
	before := time.Now().UTC().AddDate(0, 0, -7)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tokens WHERE expires_at IS NOT NULL AND expires_at < $1")).
		WithArgs(before).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tokens WHERE expires_at IS NOT NULL AND expires_at < $1")).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 4))

	count, err := repo.CountExpired(ctx, before)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	deleted, err := repo.DeleteExpired(ctx, before)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
