package conn

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Option defines connection options for the SQLite trading store.
type Option struct {
	Path   string
	Config *gorm.Config
}

// Client wraps a SQLite connection pool.
type Client struct {
	opt Option
	db  *gorm.DB
}

// New opens the trading database file at the configured path.
func New(option Option) (*Client, error) {
	if option.Path == "" {
		return nil, fmt.Errorf("missing database path")
	}

	config := option.Config
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(sqlite.Open(option.Path), config)
	if err != nil {
		return nil, err
	}

	return &Client{opt: option, db: db}, nil
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Ping verifies the store is reachable. Used once at startup so an
// unreachable store fails fast instead of erroring per message.
func (c *Client) Ping() error {
	if c == nil || c.db == nil {
		return fmt.Errorf("nil client")
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
