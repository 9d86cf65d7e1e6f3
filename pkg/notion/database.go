package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches every page of a database query, following cursors.
// Only the filter, sorts and page size of req are used.
func QueryAll(ctx context.Context, c Client, dbID string, req *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "notion: query all")
		}

		next := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if req != nil {
			next.Filter = req.Filter
			next.Sorts = req.Sorts
			next.PageSize = req.PageSize
		}

		resp, err := c.QueryDatabase(ctx, dbID, next)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

// ActiveFilter matches rows whose Status property equals "Active".
func ActiveFilter() *notionapi.DatabaseQueryRequest {
	return &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Status",
			Status: &notionapi.StatusFilterCondition{
				Equals: "Active",
			},
		},
	}
}

// PlainText concatenates the plain_text values of a rich text run.
func PlainText(rts []notionapi.RichText) string {
	var s string
	for _, rt := range rts {
		s += rt.PlainText
	}
	return s
}
