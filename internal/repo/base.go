package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is the persistence core the domain repositories embed. It owns the
// connection handle and the transaction rebinding every repository's WithTx
// would otherwise duplicate.
type Base struct {
	conn *gorm.DB
}

// NewBase wraps a GORM connection for embedding.
func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// With rebinds the base to tx. A nil tx returns the receiver unchanged, so
// callers can pass through an optional transaction handle.
func (b Base) With(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}
