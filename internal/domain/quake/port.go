package quake

import "context"

// Feed is the upstream bulletin source. Delivery is ordered by arrival but
// not exactly-once; duplicates are tolerated because correlation and
// dispatch dedup happen downstream.
type Feed interface {
	FetchBulletins(ctx context.Context, c Classification, limit int) ([]RawBulletin, error)
	FetchDetail(ctx context.Context, url string) ([]byte, error)
}

// Events publishes merged records to the dispatch pipeline.
type Events interface {
	PublishQuakeMatched(ctx context.Context, rec *Record) error
}
