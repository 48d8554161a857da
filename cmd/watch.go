package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/color"
	"github.com/movira-cli/movira/extract"
	"github.com/movira-cli/movira/history"
	"github.com/movira-cli/movira/log"
	"github.com/movira-cli/movira/mpv"
	"github.com/movira-cli/movira/playback"
	"github.com/movira-cli/movira/related"
	"github.com/movira-cli/movira/style"
	"github.com/movira-cli/movira/util"
)

// watch drives one full playback session for a catalog item: stream
// resolution, the mpv process, status folding and the resume negotiation.
func watch(ctx context.Context, client *catalog.Client, movie *catalog.Movie) error {
	if len(movie.Episodes) == 0 {
		detailed, err := client.GetDetail(ctx, movie.Slug)
		if err != nil {
			return fmt.Errorf("movie detail: %w", err)
		}
		movie = detailed
	}

	engine := mpv.New()
	defer util.Ignore(engine.Close)

	session := playback.NewSession(engine, history.Ledger{}, playback.ConfigFromViper())

	var extractor playback.Extractor
	if link, ok := movie.PlayableLink(); ok && !catalog.IsStreamLink(link) {
		extractor = extract.NewBridge(extract.NewPageSandbox(), extract.WithMasterUpgrade())
	}

	erase := util.PrintErasable(fmt.Sprintf("Resolving stream for %s...", movie.Name))
	err := session.Start(ctx, movie, extractor)
	erase()
	if err != nil {
		return err
	}

	if err := engine.Observe(func(st playback.Status) {
		session.HandleStatus(ctx, st)
	}); err != nil {
		return fmt.Errorf("observe mpv: %w", err)
	}

	fmt.Printf("%s %s\n", style.Fg(color.Green)("▶"), style.New().Bold(true).Render(movie.Name))

	go promptResume(ctx, session)

	// The session terminates with the mpv process; quitting the player
	// window is the exit gesture.
	<-engine.Wait()
	session.Exit(ctx)

	if snapshot := session.Snapshot(); snapshot.Err != nil {
		return snapshot.Err
	}

	suggestRelated(ctx, client, movie)
	return nil
}

// promptResume surfaces the resume offer as a terminal prompt. The offer's own
// countdown keeps running; an unanswered prompt resolves to resume.
func promptResume(ctx context.Context, session *playback.Session) {
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-tick.C:
			offer := session.Offer()
			if offer == nil {
				continue
			}

			resume := true
			prompt := &survey.Confirm{
				Message: fmt.Sprintf(
					"Continue from %s? (auto-resumes in %.0fs)",
					util.FormatClock(offer.SavedPosition),
					offer.Remaining().Seconds(),
				),
				Default: true,
			}
			if err := survey.AskOne(prompt, &resume); err != nil {
				return
			}
			session.ResolveResume(ctx, resume)
			return
		}
	}
}

// suggestRelated prints a short tail of related catalog items after playback.
func suggestRelated(ctx context.Context, client *catalog.Client, movie *catalog.Movie) {
	page, err := client.GetAll(ctx, 1)
	if err != nil {
		log.Warnf("related suggestions unavailable: %v", err)
		return
	}

	ranked := related.SelectFor(movie, page.Items)
	if len(ranked) == 0 {
		return
	}
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	fmt.Println()
	fmt.Println(style.New().Bold(true).Foreground(color.HiPurple).Render("You might also like"))
	for _, m := range ranked {
		fmt.Printf("  %s %s\n", style.Fg(color.Yellow)("·"), m.Name)
	}
}
