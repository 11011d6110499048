package tools

import (
	"database/sql"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
)

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string        `envconfig:"DB_HOST" required:"true"`
	Port     string        `envconfig:"DB_PORT" default:"3306"`
	User     string        `envconfig:"DB_USER" required:"true"`
	Password string        `envconfig:"DB_PASSWORD" required:"true"`
	Name     string        `envconfig:"DB_NAME" required:"true"`
	Timeout  time.Duration `envconfig:"DB_TIMEOUT" default:"5s"`
}

// DBClient wraps database connection and provides reconnection capabilities
type DBClient struct {
	db        *sql.DB
	config    *DatabaseConfig
	mutex     sync.RWMutex
	connected bool
}

// LoadDatabaseConfig loads database configuration from environment variables
func LoadDatabaseConfig() (*DatabaseConfig, error) {
	var dbConfig DatabaseConfig
	if err := envconfig.Process("", &dbConfig); err != nil {
		return nil, fmt.Errorf("failed to process database configuration: %w", err)
	}
	return &dbConfig, nil
}

// NewDBClient creates a new database client with reconnection capabilities
func NewDBClient(config *DatabaseConfig) (*DBClient, error) {
	client := &DBClient{
		config: config,
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return client, nil
}

// DSN builds the MySQL driver data source name
func (c *DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, c.Port)
	cfg.DBName = c.Name
	cfg.ParseTime = true
	cfg.Timeout = c.Timeout
	cfg.ReadTimeout = c.Timeout
	cfg.WriteTimeout = c.Timeout
	return cfg.FormatDSN()
}

// open opens and pings a new connection pool
func (c *DBClient) open() (*sql.DB, error) {
	db, err := sql.Open("mysql", c.config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Connect establishes connection to the database
func (c *DBClient) Connect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	db, err := c.open()
	if err != nil {
		c.connected = false
		return err
	}

	c.db = db
	c.connected = true
	log.Printf("[INFO] Database Connect: Connected to MariaDB database: %s", c.config.Name)
	return nil
}

// Disconnect closes the database connection
func (c *DBClient) Disconnect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.db == nil {
		c.connected = false
		return nil
	}

	err := c.db.Close()
	c.db = nil
	c.connected = false
	return err
}

// isConnectionError checks if an error indicates a connection problem
func (c *DBClient) isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errorMsg := strings.ToLower(err.Error())
	return strings.Contains(errorMsg, "broken pipe") ||
		strings.Contains(errorMsg, "timeout") ||
		strings.Contains(errorMsg, "eof") ||
		strings.Contains(errorMsg, "invalid connection") ||
		strings.Contains(errorMsg, "connection refused") ||
		strings.Contains(errorMsg, "connection reset") ||
		strings.Contains(errorMsg, "server has gone away")
}

// reconnect attempts to reconnect to the database
func (c *DBClient) reconnect() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.db != nil {
		c.db.Close()
	}
	c.connected = false

	time.Sleep(100 * time.Millisecond)

	db, err := c.open()
	if err != nil {
		return fmt.Errorf("failed to reconnect to database: %w", err)
	}

	c.db = db
	c.connected = true
	log.Println("[INFO] Database reconnect: Reconnection successful")
	return nil
}

// executeWithRetry executes a database operation with automatic retry on connection errors
func (c *DBClient) executeWithRetry(operation func(*sql.DB) error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		c.mutex.RLock()
		db := c.db
		connected := c.connected
		c.mutex.RUnlock()

		if db == nil || !connected {
			if reconnectErr := c.reconnect(); reconnectErr != nil {
				lastErr = reconnectErr
				continue
			}
			c.mutex.RLock()
			db = c.db
			c.mutex.RUnlock()
		}

		err := operation(db)
		if err == nil {
			return nil
		}

		lastErr = err

		// If it's not a connection error, don't retry
		if !c.isConnectionError(err) {
			return err
		}

		c.mutex.Lock()
		c.connected = false
		c.mutex.Unlock()
	}

	return fmt.Errorf("database operation failed after %d retries, last error: %v", maxRetries+1, lastErr)
}

// Exec executes a query with retry mechanism
func (c *DBClient) Exec(query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	err := c.executeWithRetry(func(db *sql.DB) error {
		res, err := db.Exec(query, args...)
		if err != nil {
			return err
		}
		result = res
		return nil
	}, 2)
	return result, err
}

// HealthCheck performs a simple query to verify the connection is working
func (c *DBClient) HealthCheck() error {
	return c.executeWithRetry(func(db *sql.DB) error {
		var result int
		return db.QueryRow("SELECT 1").Scan(&result)
	}, 2)
}
