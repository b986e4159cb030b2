package models

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is an offset/limit window over a list.
type Page struct {
	Offset int
	Limit  int
}

// NewPage normalises a requested window: negative offsets become zero,
// a non-positive limit falls back to the default and large limits are capped.
func NewPage(offset, limit int) Page {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	return Page{Offset: offset, Limit: limit}
}
