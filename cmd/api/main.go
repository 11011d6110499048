package main

import (
	"log"
	"net/http"

	"github.com/cpp-cyber/dirauth/internal/api/auth"
	"github.com/cpp-cyber/dirauth/internal/api/handlers"
	"github.com/cpp-cyber/dirauth/internal/api/middleware"
	"github.com/cpp-cyber/dirauth/internal/api/routes"
	"github.com/cpp-cyber/dirauth/internal/audit"
	"github.com/cpp-cyber/dirauth/internal/ldap"
	"github.com/cpp-cyber/dirauth/internal/metrics"
	"github.com/cpp-cyber/dirauth/internal/tools"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds all application configuration
type Config struct {
	Port           string `envconfig:"PORT" default:":8080"`
	SessionSecret  string `envconfig:"SESSION_SECRET"`
	SessionMaxAge  int    `envconfig:"SESSION_MAX_AGE" default:"3600"`
	SessionSecure  bool   `envconfig:"SESSION_SECURE" default:"false"`
	AllowedOrigin  string `envconfig:"ALLOWED_ORIGIN"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	AuditEnabled   bool   `envconfig:"AUDIT_ENABLED" default:"false"`
	Resources      string `envconfig:"RESOURCES" default:"dashboard-a:GroupA,dashboard-b:GroupB"`
}

// init the environment
func init() {
	_ = godotenv.Load()
}

func main() {
	gin.SetMode(gin.ReleaseMode)

	// Load and parse configuration from environment variables
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Failed to process environment configuration: %v", err)
	}

	resources, err := handlers.ParseResources(config.Resources)
	if err != nil {
		log.Fatalf("Failed to parse RESOURCES: %v", err)
	}

	recorder := metrics.Init(config.MetricsEnabled)

	// Directory client
	ldapConfig, err := ldap.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load LDAP configuration: %v", err)
	}
	directory := ldap.NewClient(ldapConfig, recorder)

	// Optional audit trail
	var (
		auditor  audit.Recorder = audit.Noop{}
		database handlers.HealthChecker
	)
	if config.AuditEnabled {
		dbConfig, err := tools.LoadDatabaseConfig()
		if err != nil {
			log.Fatalf("Failed to load database configuration: %v", err)
		}
		dbClient, err := tools.NewDBClient(dbConfig)
		if err != nil {
			log.Fatalf("Failed to initialize audit database: %v", err)
		}
		defer dbClient.Disconnect()

		store, err := audit.NewStore(dbClient)
		if err != nil {
			log.Fatalf("Failed to initialize audit store: %v", err)
		}
		auditor = store
		database = dbClient
	}

	authConfig, err := auth.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load auth configuration: %v", err)
	}
	authService := auth.NewAuthService(authConfig, directory, recorder, auditor)

	r := gin.Default()
	if config.AllowedOrigin != "" {
		r.Use(middleware.CORSMiddleware(config.AllowedOrigin))
	}

	// Setup session middleware
	sessionSecret := []byte(config.SessionSecret)
	if len(sessionSecret) == 0 {
		log.Println("[WARN] main: SESSION_SECRET not set, generating a random key; sessions will not survive a restart")
		sessionSecret = securecookie.GenerateRandomKey(32)
	}
	store := cookie.NewStore(sessionSecret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   config.SessionMaxAge,
		HttpOnly: true,
		Secure:   config.SessionSecure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("auth_session", store))

	if config.MetricsEnabled {
		log.Printf("[INFO] main: Prometheus metrics enabled at /metrics")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(authService, resources)
	routes.RegisterRoutes(r, authService, authHandler, database)

	log.Printf("[INFO] main: Listening on %s (directory %s)", config.Port, ldapConfig.URL)
	if err := r.Run(config.Port); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
