package consumer

import "context"

// Consumer blocks in Start until ctx is done or consuming fails for good.
type Consumer interface {
	Start(ctx context.Context) error
}
