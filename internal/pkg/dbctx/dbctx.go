package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos fall back to their own handle when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Background is a Context with no deadline and no transaction.
func Background() Context {
	return Context{Ctx: context.Background()}
}

// WithTx returns a copy bound to tx, keeping the request context.
func (c Context) WithTx(tx *gorm.DB) Context {
	return Context{Ctx: c.Context(), Tx: tx}
}

// Context never returns nil.
func (c Context) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}
