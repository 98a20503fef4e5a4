package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"drillbi-quiz/internal/config"
	"drillbi-quiz/internal/domain"
	"drillbi-quiz/internal/host"
	"drillbi-quiz/internal/present"
	"github.com/spf13/cobra"
)

const playHelp = "Answer with an option label. n: next  e: explain  o: change order  d: done  q: quit"

// NewPlayCmd runs a quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	flags := sessionFlags{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			params, err := flags.params()
			if err != nil {
				return err
			}
			h, cleanup, err := buildHost(cmd.Context(), cfg, flags.token)
			if err != nil {
				return err
			}
			defer cleanup()
			return play(cmd.Context(), h, params, cfg.API.Language, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	addSessionFlags(cmd, &flags)
	return cmd
}

func addSessionFlags(cmd *cobra.Command, flags *sessionFlags) {
	cmd.Flags().StringVar(&flags.token, "token", "", "bearer token (defaults to config api.token or "+config.TokenEnv+")")
	cmd.Flags().StringVar(&flags.course, "course", "algebra1", "course name")
	cmd.Flags().StringVar(&flags.order, "order", "ORDER", "question order: ORDER, REVERSE or RANDOM")
	cmd.Flags().IntVar(&flags.startQuestion, "start", 1, "question number to start from (1-based)")
}

func play(ctx context.Context, h *host.Host, params domain.SessionParams, language string, in io.Reader, out io.Writer) error {
	out = &lockedWriter{w: out}
	events, cancel := h.Subscribe()
	printed := make(chan struct{})
	defer func() {
		cancel()
		<-printed
	}()
	go func() {
		defer close(printed)
		for ev := range events {
			switch ev.Type {
			case host.EventNotice, host.EventExpired, host.EventUpsell:
				fmt.Fprintf(out, "! %s\n", ev.Message)
			}
		}
	}()

	allowed := h.Principal().CanExplain()
	if err := h.Open(ctx, params); err != nil {
		present.Render(out, h.Snapshot(), allowed)
		return err
	}
	present.Render(out, h.Snapshot(), allowed)
	fmt.Fprintln(out, playHelp)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		var err error
		switch strings.ToLower(input) {
		case "q":
			return nil
		case "d":
			return h.Done(ctx)
		case "n":
			err = h.Next(ctx)
		case "e":
			err = h.Explain(ctx, language)
		case "o":
			err = h.ChangeOrder(ctx)
		case "?", "h":
			fmt.Fprintln(out, playHelp)
			continue
		default:
			err = h.Submit(ctx, strings.ToUpper(input))
		}

		s := h.Snapshot()
		present.Render(out, s, allowed)
		switch {
		case errors.Is(err, domain.ErrUpsellRequired):
			// announced through the upsell event
		case errors.Is(err, domain.ErrAttemptEnded), errors.Is(err, domain.ErrAlreadySubmitted), errors.Is(err, domain.ErrBusy):
			fmt.Fprintf(out, "! %v\n", err)
		case err != nil && s.Phase != domain.PhaseError:
			fmt.Fprintf(out, "! %v\n", err)
		}
		if s.Phase == domain.PhaseFinished {
			return h.Done(ctx)
		}
	}
	return scanner.Err()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
