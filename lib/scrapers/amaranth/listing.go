package amaranth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrAccessTimeout = errors.New("groupware page access timed out")
	ErrAccessDenied  = errors.New("groupware denied access to the listing")
)

// Listing fetches pages of the closed-requisition list bounded to one
// date range. Page indices start at 1.
type Listing struct {
	client     *Client
	start, end time.Time
}

func (c *Client) Listing(start, end time.Time) *Listing {
	return &Listing{client: c, start: start, end: end}
}

func (l *Listing) FetchPage(ctx context.Context, page int) (string, error) {
	ctx, span := tracer.Start(ctx, "listing:FetchPage")
	defer span.End()
	span.SetAttributes(attribute.Int("page", page))

	res, err := l.client.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"searchStartDate": l.start.Format("2006-01-02"),
			"searchEndDate":   l.end.Format("2006-01-02"),
			"docStatus":       "closed",
			"pageIndex":       strconv.Itoa(page),
		}).
		Get(l.client.listPath)
	if err != nil {
		err = classifyAccessError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch listing page")
		return "", err
	}

	switch code := res.StatusCode(); {
	case code == 200:
		return string(res.Body()), nil
	case code == 401 || code == 403 || code == 429 || code == 503:
		err = fmt.Errorf("%w: status %d", ErrAccessDenied, code)
	default:
		err = fmt.Errorf("unexpected status %d from listing page", code)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "listing page returned an error status")
	return "", err
}

func classifyAccessError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrAccessTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrAccessTimeout, err)
	}
	return err
}
