package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/poiesic/vidchat"
	"github.com/poiesic/vidchat/core"
	"github.com/urfave/cli/v2"
)

var errArgsRequired = errors.New("missing arguments")

// withEngine opens the engine, runs fn and closes the engine again.
// Interrupts cancel the context handed to fn.
func withEngine(c *cli.Context, fn func(ctx context.Context, engine *vidchat.Engine) error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	engine, err := openEngine(ctx, configFrom(c))
	if err != nil {
		return err
	}
	runErr := fn(ctx, engine)

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return errors.Join(runErr, engine.Close(closeCtx))
}

func firstArg(c *cli.Context, name string) (string, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("%w: %s is required", errArgsRequired, name)
	}
	return c.Args().First(), nil
}

func submitCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("%w: at least one video is required", errArgsRequired)
	}
	refs := c.Args().Slice()
	return withEngine(c, func(ctx context.Context, engine *vidchat.Engine) error {
		out := c.App.Writer
		for _, ref := range refs {
			job, err := engine.SubmitVideo(ctx, ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s\n", job.VideoID, job.Status)
		}
		var errs []error
		for _, ref := range refs {
			job, err := engine.Wait(ctx, ref)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			printJob(out, job)
			errs = append(errs, job.Err())
		}
		return errors.Join(errs...)
	})
}

func statusCommand(c *cli.Context) error {
	ref, err := firstArg(c, "video")
	if err != nil {
		return err
	}
	return withEngine(c, func(ctx context.Context, engine *vidchat.Engine) error {
		job, err := engine.GetStatus(ctx, ref)
		if err != nil {
			return err
		}
		printJob(c.App.Writer, job)
		return nil
	})
}

func listCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, engine *vidchat.Engine) error {
		jobs, err := engine.ListVideos(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VIDEO\tSTATUS\tTITLE\tUPDATED")
		for _, job := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", job.VideoID, job.Status, job.Metadata.Title,
				job.UpdatedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	})
}

func transcriptCommand(c *cli.Context) error {
	ref, err := firstArg(c, "video")
	if err != nil {
		return err
	}
	return withEngine(c, func(ctx context.Context, engine *vidchat.Engine) error {
		transcript, err := engine.Transcript(ctx, ref)
		if err != nil {
			return err
		}
		for _, seg := range transcript.Segments {
			fmt.Fprintf(c.App.Writer, "[%s] %s\n", core.FormatRange(seg.Start, seg.End), seg.Text)
		}
		return nil
	})
}

func summarizeCommand(c *cli.Context) error {
	ref, err := firstArg(c, "video")
	if err != nil {
		return err
	}
	style := core.SummaryStyle(strings.ToLower(c.String("style")))
	return withEngine(c, func(ctx context.Context, engine *vidchat.Engine) error {
		var s *core.Summary
		if c.Bool("latest") {
			s, err = engine.LatestSummary(ctx, ref)
		} else {
			s, err = engine.Summarize(ctx, ref, style, c.String("credential"))
		}
		if err != nil {
			return err
		}
		printSummary(c.App.Writer, s)
		return nil
	})
}

func chatCommand(c *cli.Context) error {
	ref, err := firstArg(c, "video")
	if err != nil {
		return err
	}
	question := strings.Join(c.Args().Tail(), " ")
	credential := c.String("credential")

	return withEngine(c, func(ctx context.Context, engine *vidchat.Engine) error {
		out := c.App.Writer
		sessionID := c.String("session")
		if sessionID == "" {
			session, err := engine.StartSession(ctx, ref, c.String("user"))
			if err != nil {
				return err
			}
			sessionID = session.ID
			fmt.Fprintf(c.App.ErrWriter, "session %s\n", sessionID)
		}

		ask := func(q string) error {
			answer, err := engine.Chat(ctx, ref, q, sessionID, credential)
			if err != nil {
				return err
			}
			printAnswer(out, answer)
			return nil
		}
		if question != "" {
			return ask(question)
		}

		scanner := bufio.NewScanner(c.App.Reader)
		fmt.Fprint(out, "> ")
		for scanner.Scan() {
			q := strings.TrimSpace(scanner.Text())
			if q != "" {
				if err := ask(q); err != nil {
					// Keep the conversation going on provider hiccups.
					if core.IsTransient(err) || errors.Is(err, core.ErrInput) {
						fmt.Fprintf(c.App.ErrWriter, "error: %v\n", err)
					} else {
						return err
					}
				}
			}
			fmt.Fprint(out, "> ")
		}
		fmt.Fprintln(out)
		return scanner.Err()
	})
}

func sessionsCommand(c *cli.Context) error {
	ref, err := firstArg(c, "video")
	if err != nil {
		return err
	}
	return withEngine(c, func(ctx context.Context, engine *vidchat.Engine) error {
		sessions, err := engine.Sessions(ctx, ref)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tUSER\tUPDATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.UserID, s.UpdatedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	})
}

func historyCommand(c *cli.Context) error {
	sessionID, err := firstArg(c, "session id")
	if err != nil {
		return err
	}
	return withEngine(c, func(ctx context.Context, engine *vidchat.Engine) error {
		if c.Bool("delete") {
			return engine.DeleteSession(ctx, sessionID)
		}
		messages, err := engine.History(ctx, sessionID, c.Int("limit"))
		if err != nil {
			return err
		}
		for _, msg := range messages {
			fmt.Fprintf(c.App.Writer, "%s: %s\n", msg.Role, msg.Text)
			printSources(c.App.Writer, msg.Sources)
		}
		return nil
	})
}

func deleteCommand(c *cli.Context) error {
	ref, err := firstArg(c, "video")
	if err != nil {
		return err
	}
	return withEngine(c, func(ctx context.Context, engine *vidchat.Engine) error {
		return engine.DeleteVideo(ctx, ref)
	})
}

func reembedCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, engine *vidchat.Engine) error {
		cfg := configFrom(c)
		fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.Providers.EmbeddingHost)
		fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.Providers.EmbeddingModel)
		fmt.Fprintln(c.App.ErrWriter)

		result, err := engine.Reembed(ctx, c.App.ErrWriter)
		if err != nil {
			return fmt.Errorf("reembedding failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "re-embedded %d chunks in %d videos, skipped %d\n",
			result.Chunks, result.Videos, len(result.Skipped))
		return nil
	})
}

func watchCommand(c *cli.Context) error {
	cfg := configFrom(c)
	if cfg.Events.RedisURL == "" {
		return errors.New("watch needs a redis url (VIDCHAT_REDIS_URL)")
	}
	var videoID core.VideoID
	if c.NArg() > 0 {
		id, err := core.ParseVideoRef(c.Args().First())
		if err != nil {
			return err
		}
		videoID = id
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	notifier, err := newRedisNotifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer notifier.Close()

	events, err := notifier.Subscribe(ctx, videoID)
	if err != nil {
		return err
	}
	for ev := range events {
		line := fmt.Sprintf("%s %s %s", ev.UpdatedAt.Local().Format(time.TimeOnly), ev.VideoID, ev.Status)
		if ev.ErrorKind != "" {
			line += fmt.Sprintf(" (%s: %s)", ev.ErrorKind, ev.Message)
		}
		fmt.Fprintln(c.App.Writer, line)
		if videoID != "" && ev.Terminal() {
			return nil
		}
	}
	return nil
}

func printJob(w io.Writer, job *core.VideoJob) {
	fmt.Fprintf(w, "%s: %s", job.VideoID, job.Status)
	if job.Metadata.Title != "" {
		fmt.Fprintf(w, " %q", job.Metadata.Title)
	}
	if job.Status == core.StatusFailed {
		fmt.Fprintf(w, " [%s] %s", job.ErrorKind, job.ErrorMessage)
	}
	fmt.Fprintf(w, " (attempt %d)\n", job.Attempt)
}

func printSummary(w io.Writer, s *core.Summary) {
	if s.Overview == "" && len(s.KeyPoints) == 0 {
		fmt.Fprintln(w, s.Text)
		return
	}
	if s.Overview != "" {
		fmt.Fprintf(w, "Overview:\n%s\n", s.Overview)
	}
	if len(s.KeyPoints) > 0 {
		fmt.Fprintln(w, "\nKey points:")
		for _, kp := range s.KeyPoints {
			fmt.Fprintf(w, "  - %s\n", kp)
		}
	}
}

func printAnswer(w io.Writer, answer *core.Answer) {
	fmt.Fprintln(w, answer.Text)
	if !answer.Grounded {
		fmt.Fprintln(w, "(not grounded in the video)")
	}
	printSources(w, answer.Sources)
}

func printSources(w io.Writer, sources []core.ChunkRef) {
	for _, src := range sources {
		fmt.Fprintf(w, "  [%s] %.2f %s\n", core.FormatRange(src.Start, src.End), src.Score, src.Snippet)
	}
}

func styleNames() string {
	names := make([]string, len(core.SummaryStyles))
	for i, s := range core.SummaryStyles {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
