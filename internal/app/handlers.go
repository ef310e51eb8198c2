package service

import (
	"context"
	"errors"

	"github.com/okian/trendetl/internal/adapters/repository"
	"github.com/okian/trendetl/internal/domain/etlerr"
	"github.com/okian/trendetl/internal/domain/extract"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/internal/domain/priority"
	"github.com/okian/trendetl/internal/domain/sanitize"
)

// soundHandler extracts the sound attached to each video and merges it into
// the store.
type soundHandler struct {
	svc *Service
}

func (h *soundHandler) SourceID(item priority.Item) string { return item.ID() }
func (h *soundHandler) Priority(item priority.Item) model.Priority { return item.Priority }

func (h *soundHandler) Extract(_ context.Context, item priority.Item) (*extract.SoundDraft, string, error) {
	d := extract.Sound(item, h.svc.now())
	if d == nil {
		return nil, "", etlerr.Extraction("extract.sound", "video carries no sound")
	}
	return d, d.Sound.ID, nil
}

func (h *soundHandler) Validate(d *extract.SoundDraft) error {
	return h.svc.validator.Sound(d.Candidate)
}

func (h *soundHandler) Store(ctx context.Context, _ priority.Item, d *extract.SoundDraft) (string, error) {
	now := h.svc.now()
	return upsert(ctx, h.svc.store.Sounds(), d.Sound.ID, d.Sound, func(existing *model.Sound) {
		*existing = *extract.MergeSound(existing, d.Sound, now)
	})
}

// templateHandler sends each video to the analyzer and stores the resulting
// template.
type templateHandler struct {
	svc *Service
}

func (h *templateHandler) SourceID(item priority.Item) string { return item.ID() }
func (h *templateHandler) Priority(item priority.Item) model.Priority { return item.Priority }

func (h *templateHandler) Extract(ctx context.Context, item priority.Item) (*model.Template, string, error) {
	resp, err := h.svc.analyzer.Analyze(ctx, *item.Video)
	if err != nil {
		return nil, "", err
	}
	t := extract.Template(item, sanitize.Analysis(resp), h.svc.now())
	if t == nil {
		return nil, "", nil
	}
	return t, t.ID, nil
}

func (h *templateHandler) Validate(t *model.Template) error {
	if t.Duration <= 0 {
		return etlerr.Validation("validate.template", "duration must be greater than 0")
	}
	return nil
}

func (h *templateHandler) Store(ctx context.Context, _ priority.Item, t *model.Template) (string, error) {
	now := h.svc.now()
	return upsert(ctx, h.svc.store.Templates(), t.ID, t, func(existing *model.Template) {
		*existing = *extract.MergeTemplate(existing, t, now)
	})
}

// upsert merges into the stored entity, or inserts fresh when none exists.
func upsert[E any](ctx context.Context, store repository.EntityStore[E], id string, fresh E, merge func(E)) (string, error) {
	_, err := store.Update(ctx, id, func(existing E) error {
		merge(existing)
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		err = store.Put(ctx, fresh)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
