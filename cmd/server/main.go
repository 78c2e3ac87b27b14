package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tyemirov/elearning/internal/accounts"
	"github.com/tyemirov/elearning/internal/authkit"
	"github.com/tyemirov/elearning/internal/courses"
	"github.com/tyemirov/elearning/internal/media"
	"github.com/tyemirov/elearning/internal/notify"
	"github.com/tyemirov/elearning/internal/store"
	"github.com/tyemirov/elearning/internal/web"
	"go.uber.org/zap"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

var buildImageUploader = func(ctx context.Context, configuration media.S3Config) (media.ImageUploader, error) {
	return media.NewS3Uploader(ctx, configuration)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "elearning",
		Short:   "E-learning platform API: accounts, JWT sessions, courses, and enrollments",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":3000", "HTTP listen address")
	rootCmd.Flags().String("database_url", "", "Database URL (postgres:// or sqlite://)")
	rootCmd.Flags().String("jwt_signing_key", "", "HS256 signing secret for all issued tokens")
	rootCmd.Flags().Duration("access_ttl", 7*24*time.Hour, "Access token TTL")
	rootCmd.Flags().Duration("refresh_ttl", 7*24*time.Hour, "Refresh token TTL and refresh cookie max age")
	rootCmd.Flags().Duration("reset_ttl", 15*time.Minute, "Password reset token TTL")
	rootCmd.Flags().String("cookie_domain", "", "Cookie domain; empty for host-only")
	rootCmd.Flags().Bool("dev_insecure_http", false, "Allow insecure HTTP for local dev")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed CORS origins; empty allows every origin without credentials")
	rootCmd.Flags().String("client_url", "", "Public URL of the client app, used in password reset links")
	rootCmd.Flags().String("resend_api_key", "", "Resend API key; empty logs emails instead of sending them")
	rootCmd.Flags().String("mail_from", notify.DefaultSender, "Sender address of transactional emails")
	rootCmd.Flags().String("mail_override_recipient", "", "Deliver every email to this address instead of the account's")
	rootCmd.Flags().String("s3_bucket", "", "Bucket for profile pictures; empty keeps pictures inline")
	rootCmd.Flags().String("s3_region", "us-east-1", "Region of the profile picture bucket")
	rootCmd.Flags().String("s3_endpoint", "", "Custom S3 endpoint, for S3-compatible stores")
	rootCmd.Flags().String("s3_access_key_id", "", "Static S3 access key; empty uses the default AWS credential chain")
	rootCmd.Flags().String("s3_secret_access_key", "", "Static S3 secret key")
	rootCmd.Flags().String("s3_public_base_url", "", "Public base URL of stored pictures")

	rootCmd.Flags().VisitAll(func(flag *pflag.Flag) {
		_ = viper.BindPFlag(flag.Name, flag)
	})

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	jwtIssuer = "elearning"

	configCodeMissingDatabaseURL      = "config.missing_database_url"
	configCodeMissingJWTSigningKey    = "config.missing_jwt_signing_key"
	configCodeInvalidAccessTTL        = "config.invalid_access_ttl"
	configCodeInvalidRefreshTTL       = "config.invalid_refresh_ttl"
	configCodeInvalidResetTTL         = "config.invalid_reset_ttl"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeMediaInit               = "config.media_init"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

// serverSettings is everything runServer needs, resolved once from flags and
// APP_* environment variables.
type serverSettings struct {
	Auth               authkit.ServerConfig
	ListenAddr         string
	DatabaseURL        string
	CORSAllowedOrigins []string
	Mail               notify.Config
	ResendAPIKey       string
	Media              media.S3Config
}

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	settings, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, settings))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

func LoadServerConfig() (serverSettings, error) {
	databaseURL := strings.TrimSpace(viper.GetString("database_url"))
	if databaseURL == "" {
		return serverSettings{}, configError(configCodeMissingDatabaseURL, "database_url must be provided")
	}

	jwtSigningKey := viper.GetString("jwt_signing_key")
	if jwtSigningKey == "" {
		return serverSettings{}, configError(configCodeMissingJWTSigningKey, "jwt_signing_key must be provided")
	}

	accessTTL := viper.GetDuration("access_ttl")
	if accessTTL <= 0 {
		return serverSettings{}, configError(configCodeInvalidAccessTTL, "access_ttl must be greater than zero")
	}
	refreshTTL := viper.GetDuration("refresh_ttl")
	if refreshTTL <= 0 {
		return serverSettings{}, configError(configCodeInvalidRefreshTTL, "refresh_ttl must be greater than zero")
	}
	resetTTL := viper.GetDuration("reset_ttl")
	if resetTTL <= 0 {
		return serverSettings{}, configError(configCodeInvalidResetTTL, "reset_ttl must be greater than zero")
	}

	listenAddr := viper.GetString("listen_addr")
	if listenAddr == "" {
		listenAddr = ":3000"
	}

	return serverSettings{
		Auth: authkit.ServerConfig{
			JWTSigningKey:     []byte(jwtSigningKey),
			JWTIssuer:         jwtIssuer,
			AccessTTL:         accessTTL,
			RefreshTTL:        refreshTTL,
			ResetTTL:          resetTTL,
			CookieDomain:      viper.GetString("cookie_domain"),
			AllowInsecureHTTP: viper.GetBool("dev_insecure_http"),
		},
		ListenAddr:         listenAddr,
		DatabaseURL:        databaseURL,
		CORSAllowedOrigins: viper.GetStringSlice("cors_allowed_origins"),
		Mail: notify.Config{
			From:              viper.GetString("mail_from"),
			OverrideRecipient: viper.GetString("mail_override_recipient"),
			ClientURL:         viper.GetString("client_url"),
		},
		ResendAPIKey: viper.GetString("resend_api_key"),
		Media: media.S3Config{
			Bucket:          viper.GetString("s3_bucket"),
			Region:          viper.GetString("s3_region"),
			Endpoint:        viper.GetString("s3_endpoint"),
			AccessKeyID:     viper.GetString("s3_access_key_id"),
			SecretAccessKey: viper.GetString("s3_secret_access_key"),
			PublicBaseURL:   viper.GetString("s3_public_base_url"),
		},
	}, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	settings, ok := contextValue.(serverSettings)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	database, storeErr := store.Open(commandContext, settings.DatabaseURL)
	if storeErr != nil {
		return storeErr
	}
	defer func() { _ = database.Close() }()
	logger.Info("database ready", zap.String("driver", database.Driver()))

	corsPolicy, corsErr := web.ConfigureCORS(logger, settings.CORSAllowedOrigins)
	if corsErr != nil {
		return corsErr
	}
	settings.Auth.SameSiteMode = http.SameSiteLaxMode
	if corsPolicy.Credentialed {
		settings.Auth.SameSiteMode = http.SameSiteNoneMode
	}

	var mailer notify.Mailer = notify.NewLogMailer(logger)
	if settings.ResendAPIKey != "" {
		mailer = notify.NewResendMailer(settings.ResendAPIKey)
	} else {
		logger.Warn("resend_api_key not set; emails are logged, not sent",
			zap.String("code", "config.mail_disabled"))
	}
	notifier := notify.NewNotifier(mailer, settings.Mail, logger)

	var uploader media.ImageUploader = media.PassthroughUploader{}
	if settings.Media.Bucket != "" {
		s3Uploader, mediaErr := buildImageUploader(commandContext, settings.Media)
		if mediaErr != nil {
			return fmt.Errorf("%s: %w", configCodeMediaInit, mediaErr)
		}
		uploader = s3Uploader
		logger.Info("profile pictures stored in bucket", zap.String("bucket", settings.Media.Bucket))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsRecorder, metricsErr := authkit.NewPrometheusMetrics(registry)
	if metricsErr != nil {
		return metricsErr
	}

	tokens, tokensErr := authkit.NewTokenManager(settings.Auth, authkit.NewSystemClock())
	if tokensErr != nil {
		return tokensErr
	}
	hasher := authkit.NewPasswordHasher(authkit.DefaultPasswordCost)
	authenticator := authkit.NewAuthenticator(tokens, database, logger, metricsRecorder)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))
	router.Use(corsPolicy.Handler)

	web.MountRootRoutes(router, database, registry, logger)

	authService := authkit.NewService(settings.Auth, authkit.Dependencies{
		Users:    database,
		Tokens:   tokens,
		Hasher:   hasher,
		Notifier: notifier,
		Logger:   logger,
		Metrics:  metricsRecorder,
	})
	authService.MountAuthRoutes(router.Group("/api/auth"))

	accounts.NewHandlers(accounts.Dependencies{
		Users:       database,
		Enrollments: database,
		Tokens:      tokens,
		Hasher:      hasher,
		Notifier:    notifier,
		Uploader:    uploader,
		Guard:       authenticator.RequireIdentity(),
		Logger:      logger,
		Metrics:     metricsRecorder,
	}).Mount(router.Group("/api/users"))

	courses.NewHandlers(database, authenticator, logger).Mount(router.Group("/api/courses"))

	server := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stopSignals)
		select {
		case <-stopSignals:
		case <-shutdownCtx.Done():
			return
		}
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", settings.ListenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
