package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/benvon/insight-coach/internal/backends"
	"github.com/benvon/insight-coach/internal/config"
	"github.com/benvon/insight-coach/internal/memory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// StoreOpener returns the configured memory store and a func releasing it
type StoreOpener func(ctx context.Context) (memory.Store, func(), error)

// OpenConfiguredStore opens the memory store named by MEMORY_BACKEND
func OpenConfiguredStore(ctx context.Context) (memory.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.MemoryBackend == config.BackendMemory {
		fmt.Fprintln(os.Stderr, "Warning: MEMORY_BACKEND=memory is process-local; nothing persisted by the server is visible here")
	}

	infra, err := backends.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := infra.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close backends: %v\n", err)
		}
	}
	return infra.Memory, release, nil
}

// NewMemoryCmd creates the memory command
func NewMemoryCmd(open StoreOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect or reset a user's coaching memory",
	}

	cmd.AddCommand(newMemoryShowCmd(open))
	cmd.AddCommand(newMemoryResetCmd(open))

	return cmd
}

func newMemoryShowCmd(open StoreOpener) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a user's memory as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			mem, err := store.Get(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to read memory: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(mem)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newMemoryResetCmd(open StoreOpener) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget everything remembered about a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			if err := store.Delete(cmd.Context(), userID); err != nil {
				return fmt.Errorf("failed to reset memory: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Memory for user '%s' reset\n", userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
