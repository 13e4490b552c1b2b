package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"voice-quiz/internal/app"
	"voice-quiz/internal/config"
	"voice-quiz/internal/domain"
	"voice-quiz/internal/infra/memory"
	"voice-quiz/internal/infra/speaker"
	"voice-quiz/internal/infra/sqlite"
)

var errSessionOver = errors.New("session over")

// NewPlayCmd plays one quiz on the local speaker. Typed lines are answers;
// lines starting with "/" are controls such as /pause or /skip.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play <quiz-id>",
		Short: "Play a quiz through the local audio device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runPlay(ctx, *configPath, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runPlay(ctx context.Context, configPath, quizID string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if cfg.Quiz.Dir != "" {
		loader = memory.NewFileQuizLoader(cfg.Quiz.Dir)
	}
	quizzes := memory.NewQuizRepository(loader, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))

	var scores app.ScoreStore = memory.NewScoreStore(cfg.History.Limit)
	var history *sqlite.HistoryStore
	if cfg.History.SQLitePath != "" {
		history, err = sqlite.Open(cfg.History.SQLitePath)
		if err != nil {
			return err
		}
		defer history.Close()
		scores = history
	}

	spkCfg := speaker.GetDefaultConfig()
	if cfg.Speaker.FramesPerBuffer > 0 {
		spkCfg.FramesPerBuffer = cfg.Speaker.FramesPerBuffer
	}
	spk, err := speaker.New(spkCfg)
	if err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}
	defer spk.Close()

	service := app.NewQuizService(memory.NewSessionStore(), quizzes, config.NewSessionConfigLoader(cfg), scores)
	session, err := service.StartSession(ctx, quizID, spk)
	if err != nil {
		return err
	}
	sessionID := session.ID()
	defer service.Close(context.Background(), sessionID)

	updates, cancel, err := service.Subscribe(ctx, sessionID)
	if err != nil {
		return err
	}
	defer cancel()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return printUpdates(gctx, out, updates)
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-gctx.Done():
				return
			}
		}
	}()

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					// End of input ends the quiz with whatever was answered.
					return service.Control(gctx, sessionID, "stop")
				}
				if err := handleLine(gctx, service, sessionID, line); err != nil {
					fmt.Fprintf(out, "! %v\n", err)
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, errSessionOver) {
		err = nil
	}
	if err == nil && history != nil {
		if best, ok, berr := history.Best(context.Background(), quizID); berr != nil {
			log.Printf("read best score: %v", berr)
		} else if ok {
			fmt.Fprintf(out, "best so far: %d%%\n", best)
		}
	}
	return err
}

func handleLine(ctx context.Context, service *app.QuizService, sessionID, line string) error {
	line = strings.TrimSpace(line)
	if action, ok := strings.CutPrefix(line, "/"); ok {
		return service.Control(ctx, sessionID, action)
	}
	return service.Submit(ctx, sessionID, line)
}

func printUpdates(ctx context.Context, out io.Writer, updates <-chan app.Update) error {
	started := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return errSessionOver
			}
			switch u.Type {
			case app.UpdateScore:
				fmt.Fprintf(out, "score: %d of %d correct, %d%%\n",
					u.Score.CorrectCount, u.Score.TotalQuestions, u.Score.Percentage)
				return errSessionOver
			case app.UpdateError:
				fmt.Fprintf(out, "! %s\n", u.Error)
			default:
				snap := u.Snapshot
				if snap.State == domain.StateIdle {
					if started {
						fmt.Fprintln(out, "quiz reset")
						return errSessionOver
					}
					continue
				}
				started = true
				printSnapshot(out, *snap)
			}
		}
	}
}

func printSnapshot(out io.Writer, snap app.Snapshot) {
	switch snap.State {
	case domain.StatePlayingQuestion:
		fmt.Fprintf(out, "[%d/%d] %s\n", snap.Cursor+1, snap.Total, snap.Prompt)
	case domain.StateAwaitingResponse:
		if snap.Paused {
			fmt.Fprintln(out, "(paused)")
			return
		}
		fmt.Fprintln(out, "> your answer?")
	case domain.StateFeedbackCorrect, domain.StateFeedbackIncorrect, domain.StateFeedbackNoResponse:
		fmt.Fprintf(out, "%s (%d/%d)\n", snap.LastVerdict, snap.Correct, snap.Answered)
	case domain.StateReview:
		fmt.Fprintln(out, "reviewing results...")
	}
}
