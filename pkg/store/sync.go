package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Controller manages the lifecycle of one remote-backed collection:
// initialize loads it once and opens a change subscription, cleanup
// closes the subscription. A second Initialize tears down and
// reinitializes, which keeps reloads and tests from stacking
// subscriptions.
type Controller struct {
	mu       sync.Mutex
	resource types.Resource
	table    string
	load     func(context.Context) error
	onChange types.ChangeHandler

	subscription types.Subscription
	initialized  bool
}

// NewController builds a Controller for table. load populates the
// initial collection; onChange receives subsequent change events. Both
// may be nil.
func NewController(resource types.Resource, table string, load func(context.Context) error, onChange types.ChangeHandler) *Controller {
	return &Controller{
		resource: resource,
		table:    table,
		load:     load,
		onChange: onChange,
	}
}

// Initialize loads the collection and subscribes to its change channel.
// If the controller is already initialized it is cleaned up first. On
// any failure the controller is left fully cleaned up: never a loaded
// collection with a half-open subscription.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		c.cleanupLocked()
	}

	if c.load != nil {
		if err := c.load(ctx); err != nil {
			c.cleanupLocked()
			return fmt.Errorf("loading %s: %w", c.table, err)
		}
	}

	if c.onChange != nil {
		subscription, err := c.resource.Subscribe(c.table, c.onChange)
		if err != nil {
			c.cleanupLocked()
			return fmt.Errorf("subscribing to %s: %w", c.table, err)
		}
		c.subscription = subscription
	}

	c.initialized = true
	return nil
}

// Initialized reports whether the controller currently holds an open
// subscription.
func (c *Controller) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Cleanup closes the subscription and resets the initialized flag.
// Idempotent, and safe to call before Initialize.
func (c *Controller) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
}

func (c *Controller) cleanupLocked() {
	if c.subscription != nil {
		c.subscription.Unsubscribe()
		c.subscription = nil
	}
	c.initialized = false
}
