package rest

import (
	"github.com/dfryer1193/newsroom/api"
	"github.com/dfryer1193/newsroom/blog/application"
	"github.com/dfryer1193/newsroom/blog/domain"
)

func toAPIPost(p *domain.Post) api.Post {
	mediaRefs := p.MediaRefs
	if mediaRefs == nil {
		mediaRefs = []string{}
	}

	return api.Post{
		ID:        p.ID,
		Slug:      p.Slug,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Body:      p.Body,
		Excerpt:   p.Excerpt,
		Category:  p.Category,
		MediaRefs: mediaRefs,
		SEO: api.SEO{
			MetaTitle:       p.SEO.MetaTitle,
			MetaDescription: p.SEO.MetaDescription,
			Keywords:        p.SEO.Keywords,
		},
		Status:      string(p.Status),
		ScheduledAt: p.ScheduledAt,
		Timezone:    p.Timezone,
		AutoPublish: p.AutoPublish,
		PublishedAt: p.PublishedAt,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromAPISEO(s *api.SEO) *domain.SEOMetadata {
	if s == nil {
		return nil
	}
	return &domain.SEOMetadata{
		MetaTitle:       s.MetaTitle,
		MetaDescription: s.MetaDescription,
		Keywords:        s.Keywords,
	}
}

func changesFromProto(p *api.PostProto) (application.Changes, error) {
	changes := application.Changes{
		Title:       &p.Title,
		Body:        &p.Body,
		Excerpt:     &p.Excerpt,
		Category:    &p.Category,
		MediaRefs:   &p.MediaRefs,
		SEO:         fromAPISEO(p.SEO),
		Timezone:    &p.Timezone,
		AutoPublish: &p.AutoPublish,
	}

	if p.Status != "" {
		status := domain.Status(p.Status)
		changes.Status = &status
	}

	if p.ScheduledAt != nil {
		at, err := application.ParseInstant(*p.ScheduledAt)
		if err != nil {
			return application.Changes{}, err
		}
		changes.ScheduledAt = &at
	}

	return changes, nil
}

func changesFromPatch(p *api.PostPatch) (application.Changes, error) {
	changes := application.Changes{
		Title:       p.Title,
		Body:        p.Body,
		Excerpt:     p.Excerpt,
		Category:    p.Category,
		MediaRefs:   p.MediaRefs,
		SEO:         fromAPISEO(p.SEO),
		Timezone:    p.Timezone,
		AutoPublish: p.AutoPublish,
	}

	if p.Status != nil {
		status := domain.Status(*p.Status)
		changes.Status = &status
	}

	if p.ScheduledAt != nil {
		at, err := application.ParseInstant(*p.ScheduledAt)
		if err != nil {
			return application.Changes{}, err
		}
		changes.ScheduledAt = &at
	}

	return changes, nil
}
