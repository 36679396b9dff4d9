// Package singularity is the host-facing API: engines are created behind
// opaque handles and every operation is addressed by handle. A Client is
// safe for concurrent use; calls on the same handle are serialized.
package singularity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"darksingularity/internal/agent"
	"darksingularity/internal/storage"
)

var ErrUnknownHandle = errors.New("unknown engine handle")

// Handle identifies one engine owned by a Client.
type Handle string

type Options struct {
	// Engine is the configuration every created engine starts from.
	// Zero value means agent.DefaultConfig().
	Engine    *agent.Config
	StoreKind string
	StorePath string
	Logger    *slog.Logger
}

type Client struct {
	mu      sync.RWMutex
	engines map[Handle]*entry

	cfg    agent.Config
	store  storage.Store
	logger *slog.Logger

	initMu      sync.Mutex
	initialized bool
}

type entry struct {
	mu        sync.Mutex
	engine    *agent.Engine
	createdAt time.Time
}

// HandleInfo describes a live engine.
type HandleInfo struct {
	Handle        Handle
	StateSize     int
	CategorySizes []int
	CreatedAt     time.Time
}

func New(opts Options) (*Client, error) {
	cfg := agent.DefaultConfig()
	if opts.Engine != nil {
		cfg = *opts.Engine
	}
	store, err := storage.NewStore(opts.StoreKind, opts.StorePath)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		engines: make(map[Handle]*entry),
		cfg:     cfg,
		store:   store,
		logger:  logger,
	}, nil
}

// Close releases every live engine and closes the store.
func (c *Client) Close() error {
	live := c.Handles()
	for _, info := range live {
		_ = c.Destroy(info.Handle)
	}
	if len(live) > 0 {
		c.logger.Debug("engines released", "count", len(live))
	}
	return storage.CloseIfSupported(c.store)
}

// Create builds a new engine and returns its handle.
func (c *Client) Create(stateSize int, categorySizes []int) (Handle, error) {
	engine, err := agent.NewEngine(stateSize, categorySizes, c.cfg)
	if err != nil {
		return "", err
	}
	h := Handle(uuid.NewString())

	c.mu.Lock()
	c.engines[h] = &entry{engine: engine, createdAt: time.Now().UTC()}
	c.mu.Unlock()

	c.logger.Debug("engine created", "handle", h, "state_size", stateSize, "categories", categorySizes)
	return h, nil
}

// Destroy releases the engine behind h.
func (c *Client) Destroy(h Handle) error {
	c.mu.Lock()
	_, ok := c.engines[h]
	delete(c.engines, h)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	c.logger.Debug("engine destroyed", "handle", h)
	return nil
}

// Handles lists live engines ordered by creation time.
func (c *Client) Handles() []HandleInfo {
	c.mu.RLock()
	out := make([]HandleInfo, 0, len(c.engines))
	for h, e := range c.engines {
		out = append(out, HandleInfo{
			Handle:        h,
			StateSize:     e.engine.StateSize(),
			CategorySizes: e.engine.CategorySizes(),
			CreatedAt:     e.createdAt,
		})
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Handle < out[j].Handle
	})
	return out
}

// with runs fn with exclusive access to the engine behind h.
func (c *Client) with(h Handle, fn func(*agent.Engine) error) error {
	c.mu.RLock()
	e, ok := c.engines[h]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.engine)
}

// Reset returns the engine behind h to its initial state, keeping its
// knowledge rules and active conditions.
func (c *Client) Reset(h Handle) error {
	err := c.with(h, func(e *agent.Engine) error {
		e.Reset()
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Debug("engine reset", "handle", h)
	return nil
}

func (c *Client) SelectActions(h Handle, state int) ([]int, error) {
	var actions []int
	err := c.with(h, func(e *agent.Engine) error {
		actions = e.SelectActions(state)
		return nil
	})
	return actions, err
}

func (c *Client) Learn(h Handle, reward float32) error {
	return c.with(h, func(e *agent.Engine) error {
		e.Learn(reward)
		return nil
	})
}

func (c *Client) ObserveExpert(h Handle, state int, actions []int, strength float32) error {
	return c.with(h, func(e *agent.Engine) error {
		e.ObserveExpert(state, actions, strength)
		return nil
	})
}

func (c *Client) SetActiveConditions(h Handle, conditions []int32) error {
	return c.with(h, func(e *agent.Engine) error {
		e.SetActiveConditions(conditions)
		return nil
	})
}

func (c *Client) AddKnowledgeRule(h Handle, conditionID int32, action int, strength float32) error {
	return c.with(h, func(e *agent.Engine) error {
		e.AddKnowledgeRule(conditionID, action, strength)
		return nil
	})
}

func (c *Client) SetNeuronState(h Handle, node int, value float32) error {
	return c.with(h, func(e *agent.Engine) error {
		e.SetNeuronState(node, value)
		return nil
	})
}

func (c *Client) Temperature(h Handle) (float32, error) {
	var v float32
	err := c.with(h, func(e *agent.Engine) error {
		v = e.Temperature()
		return nil
	})
	return v, err
}

func (c *Client) ResonanceDensity(h Handle) (float64, error) {
	var v float64
	err := c.with(h, func(e *agent.Engine) error {
		v = e.ResonanceDensity()
		return nil
	})
	return v, err
}

func (c *Client) NodeStates(h Handle) ([]float32, error) {
	var v []float32
	err := c.with(h, func(e *agent.Engine) error {
		v = e.NodeStates()
		return nil
	})
	return v, err
}

func (c *Client) InterventionLevel(h Handle) (float32, error) {
	var v float32
	err := c.with(h, func(e *agent.Engine) error {
		v = e.InterventionLevel()
		return nil
	})
	return v, err
}

func (c *Client) ActionScore(h Handle, action int) (float32, error) {
	var v float32
	err := c.with(h, func(e *agent.Engine) error {
		v = e.ActionScore(action)
		return nil
	})
	return v, err
}

// Save writes the engine to a DSYM file.
func (c *Client) Save(h Handle, path string) error {
	err := c.with(h, func(e *agent.Engine) error {
		return e.Save(path)
	})
	if err != nil {
		return err
	}
	c.logger.Info("engine saved", "handle", h, "path", path)
	return nil
}

// Load replaces the engine state from a DSYM file. A failed load leaves
// the engine as it was.
func (c *Client) Load(h Handle, path string) error {
	err := c.with(h, func(e *agent.Engine) error {
		return e.Load(path)
	})
	if err != nil {
		c.logger.Warn("engine load failed", "handle", h, "path", path, "error", err)
		return err
	}
	c.logger.Info("engine loaded", "handle", h, "path", path)
	return nil
}

// ensureStore initializes the store on first use. A failed Init is retried
// by the next call.
func (c *Client) ensureStore(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}
