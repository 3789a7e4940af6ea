// Package cursor tracks the last successful batch time, which decides which
// source files a batch selects.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/logger"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/store"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// Layout is the stored cursor format, always UTC.
const Layout = "2006-01-02 15:04:05"

// Epoch is the cursor value of a store that has never completed a batch.
var Epoch = time.Unix(0, 0).UTC()

// Cursor reads and advances the persisted last-run time.
type Cursor struct {
	store  store.Store
	object string
	log    *logger.Logger
}

// New creates a cursor persisted as object in s.
func New(s store.Store, object string, log *logger.Logger) *Cursor {
	return &Cursor{store: s, object: object, log: log}
}

// Read returns the last successful run time. A missing, unreadable or
// unparsable cursor is logged and read as Epoch, so every listed file is
// selected.
func (c *Cursor) Read(ctx context.Context) time.Time {
	text, err := c.store.ReadText(ctx, c.object)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.log.Info("no cursor found, selecting all files", "object", c.object)
		} else {
			c.log.Warn("cursor unreadable, selecting all files", "object", c.object, "error", err)
		}
		return Epoch
	}

	t, err := time.ParseInLocation(Layout, strings.TrimSpace(text), time.UTC)
	if err != nil {
		c.log.Warn("cursor unparsable, selecting all files", "object", c.object, "value", text)
		return Epoch
	}
	return t
}

// Write stores now as the last successful run time.
func (c *Cursor) Write(ctx context.Context, now time.Time) error {
	if err := c.store.WriteText(ctx, c.object, now.UTC().Format(Layout)); err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}
	return nil
}

// Select keeps the objects whose name contains nameFilter and that were
// created strictly after since, preserving listing order.
func Select(objects []types.SourceObject, nameFilter string, since time.Time) []types.SourceObject {
	selected := make([]types.SourceObject, 0, len(objects))
	for _, o := range objects {
		if strings.Contains(o.Name, nameFilter) && o.CreatedAt.After(since) {
			selected = append(selected, o)
		}
	}
	return selected
}
