package store_test

import (
	"bytes"
	"log/slog"

	"github.com/jacentio/lattice/store"
)

// passConn is a Connection that stores every value unchanged.
type passConn struct{}

func (passConn) ValueForDB(value any, f *store.Field) (any, error) { return value, nil }

// newLogger returns a logger writing text records to buf.
func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// bookModel returns a concrete model with an integer primary key.
func bookModel() *store.Model {
	m := store.NewModel("Book", "books")
	m.AddField(&store.Field{Name: "id", PrimaryKey: true})
	m.AddField(&store.Field{Name: "title"})
	m.AddField(&store.Field{Name: "subtitle", Null: true})
	return m
}

// chain is a three-level multi-table hierarchy: Novel -> Book -> Work.
type chain struct {
	work, book, novel *store.Model
}

func newChain() chain {
	work := store.NewModel("Work", "works")
	work.AddField(&store.Field{Name: "id", PrimaryKey: true})
	work.AddField(&store.Field{Name: "author"})

	book := store.NewModel("Book", "books", work)
	book.AddField(&store.Field{Name: "work_ptr", AttName: "work_ptr_id", PrimaryKey: true})
	book.AddField(&store.Field{Name: "isbn"})

	novel := store.NewModel("Novel", "novels", book)
	novel.AddField(&store.Field{Name: "book_ptr", AttName: "book_ptr_id", PrimaryKey: true})
	novel.AddField(&store.Field{Name: "genre"})

	return chain{work: work, book: book, novel: novel}
}
