package repository

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListRequest is the limit/offset window shared by feed, comment and
// follow listings.
type ListRequest struct {
	Limit  int
	Offset int
}

// ListResult carries one page plus the information the envelope needs to
// report has_more without a second round trip.
type ListResult[T any] struct {
	Items   []T
	Total   int64
	HasMore bool
}

func normalizeListRequest(in ListRequest) ListRequest {
	limit := in.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}
	return ListRequest{Limit: limit, Offset: offset}
}

func hasMore(total int64, req ListRequest, got int) bool {
	return int64(req.Offset+got) < total
}
