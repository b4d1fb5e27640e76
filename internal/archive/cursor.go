package archive

import "context"

const defaultPageSize = 200

// pageFunc returns up to limit IDs strictly greater than after, ascending.
type pageFunc func(ctx context.Context, after int64, limit int) ([]int64, error)

// pagedCursor walks IDs with keyset pagination so only one page is ever held.
type pagedCursor struct {
	ctx      context.Context
	fetch    pageFunc
	pageSize int

	page   []int64
	pos    int
	last   int64
	cur    int64
	done   bool
	closed bool
	err    error
}

func newPagedCursor(ctx context.Context, pageSize int, fetch pageFunc) *pagedCursor {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &pagedCursor{ctx: ctx, fetch: fetch, pageSize: pageSize}
}

func (c *pagedCursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if c.pos >= len(c.page) {
		if c.done {
			return false
		}
		if err := c.ctx.Err(); err != nil {
			c.err = err
			return false
		}
		page, err := c.fetch(c.ctx, c.last, c.pageSize)
		if err != nil {
			c.err = err
			return false
		}
		c.page = page
		c.pos = 0
		if len(page) < c.pageSize {
			c.done = true
		}
		if len(page) == 0 {
			return false
		}
	}
	c.cur = c.page[c.pos]
	c.last = c.cur
	c.pos++
	return true
}

func (c *pagedCursor) ID() int64 { return c.cur }

func (c *pagedCursor) Err() error { return c.err }

func (c *pagedCursor) Close() error {
	c.closed = true
	c.page = nil
	return nil
}
