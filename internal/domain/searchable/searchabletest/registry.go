// Package searchabletest provides a shared type registry for tests.
package searchabletest

import "github.com/kailas-cloud/ftsync/internal/domain/searchable"

// Descriptors returns the registrations used across tests: a blog with
// articles and comments plus a notification hierarchy stored in one table.
func Descriptors() []searchable.Descriptor {
	return []searchable.Descriptor{
		{
			Name:             "Article",
			Searchable:       true,
			SearchableFields: []string{"title", "body"},
			Attributes: []searchable.Projection{
				{Key: "custom_attribute", Source: "tags"},
				{Key: "title", Source: "title"},
			},
			Columns: []string{"id", "title", "body", "tags", "comments_count", "created_at", "updated_at"},
		},
		{
			Name:       "Comment",
			Searchable: true,
			IfChanged:  []string{"article_id"},
			Columns:    []string{"id", "article_id", "body"},
		},
		{
			Name:             "Notification",
			Searchable:       true,
			SearchableFields: []string{"body"},
			Inheritance:      true,
			Columns:          []string{"id", "type", "body"},
		},
		{Name: "CommentNotification", Parent: "Notification"},
		{Name: "DeepCommentNotification", Parent: "CommentNotification"},
	}
}

// Registry builds a registry from Descriptors and panics on error.
func Registry() *searchable.Registry {
	r, err := searchable.NewRegistry(Descriptors()...)
	if err != nil {
		panic(err)
	}
	return r
}
