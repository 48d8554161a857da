package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/movira-cli/movira/catalog"
	"github.com/movira-cli/movira/history"
)

// browse runs the interactive discovery flow: search prompt, picker, playback.
func browse(ctx context.Context) error {
	var query string
	if err := survey.AskOne(&survey.Input{Message: "Search for a movie:"}, &query, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	client := catalog.NewClient()
	page, err := client.Search(ctx, query, 1)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(page.Items) == 0 {
		return fmt.Errorf("nothing found for %q", query)
	}

	names := make([]string, len(page.Items))
	for i, m := range page.Items {
		names[i] = m.Name
	}

	var picked int
	prompt := &survey.Select{
		Message: "Pick a movie:",
		Options: names,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return err
	}

	return watch(ctx, client, page.Items[picked])
}

// continueWatching resumes the most recent watch history entry.
func continueWatching(ctx context.Context) error {
	entries, err := history.All()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("watch history is empty")
	}

	client := catalog.NewClient()
	movie, err := client.GetDetail(ctx, entries[0].Slug)
	if err != nil {
		return fmt.Errorf("movie detail: %w", err)
	}

	return watch(ctx, client, movie)
}
