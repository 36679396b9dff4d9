package singularity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"darksingularity/internal/agent"
	"darksingularity/internal/model"
	"darksingularity/internal/storage"
)

// Checkpoint stores the engine behind h in the client's store under id and
// returns the id. An empty id is replaced by a fresh uuid.
func (c *Client) Checkpoint(ctx context.Context, h Handle, id string) (string, error) {
	if err := c.ensureStore(ctx); err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}
	data, err := c.Snapshot(h)
	if err != nil {
		return "", err
	}
	if err := c.store.SaveSnapshot(ctx, id, data); err != nil {
		return "", fmt.Errorf("checkpoint %s: %w", id, err)
	}
	c.logger.Info("checkpoint saved", "handle", h, "id", id, "bytes", len(data))
	return id, nil
}

// Snapshot encodes the engine behind h in the DSYM format.
func (c *Client) Snapshot(h Handle) ([]byte, error) {
	var data []byte
	err := c.with(h, func(e *agent.Engine) error {
		var err error
		data, err = e.MarshalBinary()
		return err
	})
	return data, err
}

// Restore applies checkpoint id to the engine behind h.
func (c *Client) Restore(ctx context.Context, h Handle, id string) error {
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	data, ok, err := c.store.GetSnapshot(ctx, id)
	if err != nil {
		return fmt.Errorf("restore %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: checkpoint not found: %s", storage.ErrInvalidSnapshotID, id)
	}
	err = c.with(h, func(e *agent.Engine) error {
		return e.UnmarshalBinary(data)
	})
	if err != nil {
		return fmt.Errorf("restore %s: %w", id, err)
	}
	c.logger.Info("checkpoint restored", "handle", h, "id", id)
	return nil
}

func (c *Client) Checkpoints(ctx context.Context) ([]model.SnapshotRecord, error) {
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	return c.store.ListSnapshots(ctx)
}

func (c *Client) DeleteCheckpoint(ctx context.Context, id string) error {
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	return c.store.DeleteSnapshot(ctx, id)
}
