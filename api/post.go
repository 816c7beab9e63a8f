package api

import "time"

type SEO struct {
	MetaTitle       string   `json:"meta_title,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
}

type Post struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	AuthorID    string     `json:"author_id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Excerpt     string     `json:"excerpt"`
	Category    string     `json:"category,omitempty"`
	MediaRefs   []string   `json:"media_refs"`
	SEO         SEO        `json:"seo"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Timezone    string     `json:"timezone,omitempty"`
	AutoPublish bool       `json:"auto_publish"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type PostList struct {
	Posts  []Post `json:"posts"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// PostProto is the body of a create request. ScheduledAt is RFC 3339.
type PostProto struct {
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Excerpt     string   `json:"excerpt"`
	Category    string   `json:"category"`
	MediaRefs   []string `json:"media_refs"`
	SEO         *SEO     `json:"seo"`
	Status      string   `json:"status" binding:"omitempty,oneof=draft scheduled published"`
	ScheduledAt *string  `json:"scheduled_at"`
	Timezone    string   `json:"timezone"`
	AutoPublish bool     `json:"auto_publish"`
}

// PostPatch is the body of an update request. Absent fields are left as they are.
type PostPatch struct {
	Title       *string   `json:"title"`
	Body        *string   `json:"body"`
	Excerpt     *string   `json:"excerpt"`
	Category    *string   `json:"category"`
	MediaRefs   *[]string `json:"media_refs"`
	SEO         *SEO      `json:"seo"`
	Status      *string   `json:"status" binding:"omitempty,oneof=draft scheduled published"`
	ScheduledAt *string   `json:"scheduled_at"`
	Timezone    *string   `json:"timezone"`
	AutoPublish *bool     `json:"auto_publish"`
}

type ScheduleProto struct {
	ScheduledAt string  `json:"scheduled_at"`
	Timezone    *string `json:"timezone"`
}

type Error struct {
	Kind    string `json:"kind"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}
