package repository

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// ErrInvalidCursor is returned for a cursor this package did not issue.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Page bounds a list query. An empty Cursor starts from the top.
type Page struct {
	Cursor string
	Limit  int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

func (p Page) limit() int {
	switch {
	case p.Limit <= 0:
		return DefaultPageLimit
	case p.Limit > MaxPageLimit:
		return MaxPageLimit
	}
	return p.Limit
}

// cursor is the keyset position after the last returned row, ordered by
// (At DESC, ID DESC). For name-ordered lists Key carries the name instead.
type cursor struct {
	ID  string    `json:"id"`
	At  time.Time `json:"at,omitempty"`
	Key string    `json:"key,omitempty"`
}

func encodeCursor(c cursor) string {
	data, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(data)
}

func decodeCursor(s string) (*cursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil || c.ID == "" {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// trimPage drops the extra row fetched past limit and returns the cursor
// for the next page, "" on the last page.
func trimPage[T any](items []*T, limit int, next func(*T) cursor) ([]*T, string) {
	if len(items) <= limit {
		return items, ""
	}
	items = items[:limit]
	return items, encodeCursor(next(items[len(items)-1]))
}

// argList accumulates positional query arguments.
type argList []any

// add appends v and returns its placeholder.
func (a *argList) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}
