package store

import (
	"context"

	"github.com/google/uuid"
)

// PurgePrompt removes a prompt after its associations. It does not touch
// the template's prompt_count.
func PurgePrompt(ctx context.Context, r Repos, id uuid.UUID) error {
	if err := r.Tests().DeleteAssociationsByPrompt(ctx, id); err != nil {
		return err
	}
	return r.Prompts().Delete(ctx, id)
}

// PurgeTemplate removes a template and every prompt in its version chain.
// It returns the number of prompts removed.
func PurgeTemplate(ctx context.Context, r Repos, id uuid.UUID) (int, error) {
	prompts, err := r.Prompts().ListByTemplate(ctx, id)
	if err != nil {
		return 0, err
	}
	for _, p := range prompts {
		if err := PurgePrompt(ctx, r, p.ID); err != nil {
			return 0, err
		}
	}
	if err := r.Templates().Delete(ctx, id); err != nil {
		return 0, err
	}
	return len(prompts), nil
}

// PurgeProject removes a project with its templates and their prompts.
func PurgeProject(ctx context.Context, r Repos, id uuid.UUID) (templates, prompts int, err error) {
	list, err := r.Templates().ListByProject(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	for _, t := range list {
		n, err := PurgeTemplate(ctx, r, t.ID)
		if err != nil {
			return 0, 0, err
		}
		prompts += n
	}
	if err := r.Projects().Delete(ctx, id); err != nil {
		return 0, 0, err
	}
	return len(list), prompts, nil
}
