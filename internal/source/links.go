package source

import (
	"strings"
)

// Links renders view and edit URLs for records
type Links struct {
	site SiteConfig
}

func NewLinks(site SiteConfig) *Links {
	site.BaseURL = strings.TrimRight(site.BaseURL, "/")
	return &Links{site: site}
}

func (l *Links) PostView(id string) string {
	return l.render(l.site.PostViewURL, id)
}

func (l *Links) PostEdit(id string) string {
	return l.render(l.site.PostEditURL, id)
}

func (l *Links) CommentView(postID, commentID string) string {
	return l.PostView(postID) + "#comment-" + commentID
}

func (l *Links) CommentEdit(id string) string {
	return l.render(l.site.CommentEditURL, id)
}

func (l *Links) Options() string {
	return l.render(l.site.OptionsURL, "")
}

func (l *Links) render(template, id string) string {
	if template == "" {
		return ""
	}
	return strings.NewReplacer("{base}", l.site.BaseURL, "{id}", id).Replace(template)
}
