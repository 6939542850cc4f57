package ports

import (
	"context"

	"cropadvisor/domain/crop"
)

// ResultCache memoizes recommendation results. Keys already include the model
// version, so entries never outlive the model that produced them.
type ResultCache interface {
	Get(ctx context.Context, key string) (*crop.Result, bool)
	Set(ctx context.Context, key string, result *crop.Result) error
}
