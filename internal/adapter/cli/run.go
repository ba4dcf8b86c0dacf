package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// withApp loads the config, wires an app for the duration of fn and shuts it
// down afterwards, draining any placed orders first.
func withApp(cmd *cobra.Command, load configLoader, fn func(ctx context.Context, a *app) error) (err error) {
	cfg, err := load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	return fn(ctx, a)
}
