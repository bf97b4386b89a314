// Package ftsync keeps a full-text search index in sync with the records of
// a relational database and searches it.
//
// Record types opt in by registering a TypeDescriptor. Lifecycle hooks mirror
// creates, updates and destroys into the index; searches return record ids,
// raw hits, counts or records hydrated from the database.
//
//	client, _ := ftsync.New(
//	    ftsync.WithRedis("localhost", 6379, "", ""),
//	    ftsync.WithDB(db, "postgres"),
//	    ftsync.WithTypes(ftsync.TypeDescriptor{
//	        Name:             "Article",
//	        Searchable:       true,
//	        SearchableFields: []string{"title", "body"},
//	        Attributes:       []ftsync.Projection{{Key: "custom_attribute", Source: "tags"}},
//	    }),
//	)
//	defer client.Close()
//
//	rec, _ := client.NewRecord("Article", 1, map[string]any{"title": "Rails tips"})
//	_ = client.Saved(ctx, rec, true)
//
//	res, _ := client.Search("Article").
//	    Phrase("rails OR django").
//	    Where("custom_attribute STRINC ruby").
//	    Order("db_id NUMD").
//	    Limit(10).
//	    Do(ctx)
package ftsync
