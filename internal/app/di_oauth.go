package app

import (
	"fmt"
	"sync"

	"github.com/allisson/tokenkeeper/internal/database"
	oauthHTTP "github.com/allisson/tokenkeeper/internal/oauth/http"
	oauthMySQL "github.com/allisson/tokenkeeper/internal/oauth/repository/mysql"
	oauthPostgreSQL "github.com/allisson/tokenkeeper/internal/oauth/repository/postgresql"
	oauthService "github.com/allisson/tokenkeeper/internal/oauth/service"
	oauthUseCase "github.com/allisson/tokenkeeper/internal/oauth/usecase"
)

// oauthComponents holds the lazily built OAuth stores, use cases and handlers.
type oauthComponents struct {
	applicationRepository   oauthUseCase.ApplicationRepository
	authorizationRepository oauthUseCase.AuthorizationRepository
	tokenRepository         oauthUseCase.TokenRepository

	applicationUseCase     oauthUseCase.ApplicationUseCase
	authorizationUseCase   oauthUseCase.AuthorizationUseCase
	tokenUseCase           oauthUseCase.TokenUseCase
	tokenManagementUseCase oauthUseCase.TokenManagementUseCase

	tokenManagementHandler *oauthHTTP.TokenManagementHandler
	authorizationHandler   *oauthHTTP.AuthorizationHandler

	applicationRepositoryInit   sync.Once
	authorizationRepositoryInit sync.Once
	tokenRepositoryInit         sync.Once
	applicationUseCaseInit      sync.Once
	authorizationUseCaseInit    sync.Once
	tokenUseCaseInit            sync.Once
	tokenManagementUseCaseInit  sync.Once
	tokenManagementHandlerInit  sync.Once
	authorizationHandlerInit    sync.Once
}

// ApplicationRepository returns the application store for the configured driver.
func (c *Container) ApplicationRepository() (oauthUseCase.ApplicationRepository, error) {
	c.applicationRepositoryInit.Do(func() {
		var err error
		c.applicationRepository, err = c.initApplicationRepository()
		c.storeInitError("applicationRepository", err)
	})
	return c.applicationRepository, c.initError("applicationRepository")
}

// AuthorizationRepository returns the authorization store for the configured driver.
func (c *Container) AuthorizationRepository() (oauthUseCase.AuthorizationRepository, error) {
	c.authorizationRepositoryInit.Do(func() {
		var err error
		c.authorizationRepository, err = c.initAuthorizationRepository()
		c.storeInitError("authorizationRepository", err)
	})
	return c.authorizationRepository, c.initError("authorizationRepository")
}

// TokenRepository returns the token store for the configured driver.
func (c *Container) TokenRepository() (oauthUseCase.TokenRepository, error) {
	c.tokenRepositoryInit.Do(func() {
		var err error
		c.tokenRepository, err = c.initTokenRepository()
		c.storeInitError("tokenRepository", err)
	})
	return c.tokenRepository, c.initError("tokenRepository")
}

// ApplicationUseCase returns the application use case.
func (c *Container) ApplicationUseCase() (oauthUseCase.ApplicationUseCase, error) {
	c.applicationUseCaseInit.Do(func() {
		var err error
		c.applicationUseCase, err = c.initApplicationUseCase()
		c.storeInitError("applicationUseCase", err)
	})
	return c.applicationUseCase, c.initError("applicationUseCase")
}

// AuthorizationUseCase returns the authorization use case.
func (c *Container) AuthorizationUseCase() (oauthUseCase.AuthorizationUseCase, error) {
	c.authorizationUseCaseInit.Do(func() {
		var err error
		c.authorizationUseCase, err = c.initAuthorizationUseCase()
		c.storeInitError("authorizationUseCase", err)
	})
	return c.authorizationUseCase, c.initError("authorizationUseCase")
}

// TokenUseCase returns the token persistence use case.
func (c *Container) TokenUseCase() (oauthUseCase.TokenUseCase, error) {
	c.tokenUseCaseInit.Do(func() {
		var err error
		c.tokenUseCase, err = c.initTokenUseCase()
		c.storeInitError("tokenUseCase", err)
	})
	return c.tokenUseCase, c.initError("tokenUseCase")
}

// TokenManagementUseCase returns the revocation and login policy use case.
func (c *Container) TokenManagementUseCase() (oauthUseCase.TokenManagementUseCase, error) {
	c.tokenManagementUseCaseInit.Do(func() {
		var err error
		c.tokenManagementUseCase, err = c.initTokenManagementUseCase()
		c.storeInitError("tokenManagementUseCase", err)
	})
	return c.tokenManagementUseCase, c.initError("tokenManagementUseCase")
}

// TokenManagementHandler returns the HTTP handler for revocation and login policy.
func (c *Container) TokenManagementHandler() (*oauthHTTP.TokenManagementHandler, error) {
	c.tokenManagementHandlerInit.Do(func() {
		useCase, err := c.TokenManagementUseCase()
		if err != nil {
			c.storeInitError("tokenManagementHandler",
				fmt.Errorf("failed to get token management use case for handler: %w", err))
			return
		}
		c.tokenManagementHandler = oauthHTTP.NewTokenManagementHandler(useCase, c.Logger())
	})
	return c.tokenManagementHandler, c.initError("tokenManagementHandler")
}

// AuthorizationHandler returns the HTTP handler for authorizations.
func (c *Container) AuthorizationHandler() (*oauthHTTP.AuthorizationHandler, error) {
	c.authorizationHandlerInit.Do(func() {
		useCase, err := c.AuthorizationUseCase()
		if err != nil {
			c.storeInitError("authorizationHandler",
				fmt.Errorf("failed to get authorization use case for handler: %w", err))
			return
		}
		c.authorizationHandler = oauthHTTP.NewAuthorizationHandler(useCase, c.Logger())
	})
	return c.authorizationHandler, c.initError("authorizationHandler")
}

func (c *Container) initApplicationRepository() (oauthUseCase.ApplicationRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for application repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return oauthMySQL.NewMySQLApplicationRepository(db), nil
	case database.DriverPostgres:
		return oauthPostgreSQL.NewPostgreSQLApplicationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initAuthorizationRepository() (oauthUseCase.AuthorizationRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for authorization repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return oauthMySQL.NewMySQLAuthorizationRepository(db), nil
	case database.DriverPostgres:
		return oauthPostgreSQL.NewPostgreSQLAuthorizationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initTokenRepository() (oauthUseCase.TokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for token repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return oauthMySQL.NewMySQLTokenRepository(db), nil
	case database.DriverPostgres:
		return oauthPostgreSQL.NewPostgreSQLTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initApplicationUseCase() (oauthUseCase.ApplicationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for application use case: %w", err)
	}

	appRepo, err := c.ApplicationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get application repository for application use case: %w", err)
	}

	baseUseCase := oauthUseCase.NewApplicationUseCase(
		txManager,
		appRepo,
		oauthService.NewSecretService(),
		c.AuditDispatcher(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for application use case: %w", err)
		}
		return oauthUseCase.NewApplicationUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initAuthorizationUseCase() (oauthUseCase.AuthorizationUseCase, error) {
	authzRepo, err := c.AuthorizationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization repository for authorization use case: %w", err)
	}

	baseUseCase := oauthUseCase.NewAuthorizationUseCase(authzRepo)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for authorization use case: %w", err)
		}
		return oauthUseCase.NewAuthorizationUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initTokenUseCase() (oauthUseCase.TokenUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for token use case: %w", err)
	}

	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for token use case: %w", err)
	}

	baseUseCase := oauthUseCase.NewTokenUseCase(txManager, tokenRepo, oauthService.NewReferenceService())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for token use case: %w", err)
		}
		return oauthUseCase.NewTokenUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initTokenManagementUseCase() (oauthUseCase.TokenManagementUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for token management use case: %w", err)
	}

	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for token management use case: %w", err)
	}

	bl, err := c.Blacklist()
	if err != nil {
		return nil, fmt.Errorf("failed to get blacklist for token management use case: %w", err)
	}

	revocationMetrics, err := c.RevocationMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get revocation metrics for token management use case: %w", err)
	}

	baseUseCase := oauthUseCase.NewTokenManagementUseCase(
		txManager,
		tokenRepo,
		bl,
		c.PolicyCache(),
		c.AuditDispatcher(),
		revocationMetrics,
		c.Logger(),
		oauthUseCase.TokenManagementConfig{FallbackTTL: c.config.BlacklistFallbackTTL},
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for token management use case: %w", err)
		}
		return oauthUseCase.NewTokenManagementUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
