package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benvon/insight-coach/internal/config"
	"github.com/benvon/insight-coach/internal/memory"
	"github.com/benvon/insight-coach/internal/models"
	"github.com/benvon/insight-coach/internal/services/insight"
	"github.com/benvon/insight-coach/internal/validation"
	"github.com/spf13/cobra"
)

// NewPromptCmd creates the prompt command. It plans a request exactly as the
// server would and prints the outcome without calling the completion service.
func NewPromptCmd(open StoreOpener) *cobra.Command {
	var (
		file       string
		hour       int
		withMemory bool
	)

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Show the prompt or shortcut reply a request would produce",
		Long:  "Read an insight request body as JSON and print the derived intent, tone and prompt. No completion is requested.",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("hour") {
				req.LocalHour = &hour
			}
			if err := validation.InsightRequest(req); err != nil {
				return fmt.Errorf("invalid request: %w", err)
			}

			var mem memory.Memory
			if withMemory {
				store, release, err := open(cmd.Context())
				if err != nil {
					return err
				}
				defer release()
				if mem, err = store.Get(cmd.Context(), req.UserID); err != nil {
					return fmt.Errorf("failed to read memory: %w", err)
				}
			}

			svc := insight.NewService(insight.Config{Location: defaultLocation()})
			printPlan(cmd.OutOrStdout(), svc.Plan(req, mem))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "-", "Request body JSON file, or - for stdin")
	cmd.Flags().IntVar(&hour, "hour", 0, "Override the request's local hour (0-23)")
	cmd.Flags().BoolVar(&withMemory, "with-memory", false, "Include the user's stored memory")

	return cmd
}

func readRequest(stdin io.Reader, file string) (*models.InsightRequest, error) {
	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open request file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var req models.InsightRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}

func defaultLocation() *time.Location {
	cfg := config.Config{DefaultTimezone: os.Getenv("DEFAULT_TIMEZONE")}
	if cfg.DefaultTimezone == "" {
		return time.UTC
	}
	return cfg.Location()
}

func printPlan(w io.Writer, p insight.Plan) {
	fmt.Fprintf(w, "Intent:      %s\n", p.Intent)
	fmt.Fprintf(w, "Local hour:  %d\n", p.LocalHour)
	fmt.Fprintf(w, "Pressure:    %s\n", p.Settings.Pressure)
	fmt.Fprintf(w, "Persona:     %s\n", p.Prompt.Persona)

	if p.Reply != "" {
		fmt.Fprintf(w, "Shortcut:    %s\n\n%s\n", p.Shortcut, p.Reply)
		return
	}

	fmt.Fprintf(w, "Temperature: %.2f\n", p.Temperature)
	fmt.Fprintf(w, "\n--- system ---\n%s\n", p.Prompt.System)
	fmt.Fprintf(w, "\n--- user ---\n%s\n", p.Prompt.User)
}
