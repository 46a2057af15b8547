package bump

import (
	"context"
	"fmt"
	"strings"

	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/host"
)

// Acquire reads the encodings, then the summary data, and ranks it. The
// data is not requested at all when an encoding is missing.
func Acquire(ctx context.Context, src host.DataSource, enc host.EncodingSource) (Ranking, error) {
	if enc == nil {
		return Ranking{}, fmt.Errorf("%w: no encodings", common.ErrUnresolved)
	}
	bindings, err := enc.Encodings(ctx)
	if err != nil {
		return Ranking{}, fmt.Errorf("%w: reading encodings: %w", common.ErrAcquisition, err)
	}
	var missing []string
	for _, role := range Resolver.Roles {
		if bindings[role] == "" {
			missing = append(missing, string(role))
		}
	}
	if len(missing) > 0 {
		return Ranking{}, fmt.Errorf("%w: no field encoded on %s", common.ErrUnresolved, strings.Join(missing, ", "))
	}

	table, err := host.ReadAll(ctx, src, host.ReaderOptions{IgnoreSelection: true})
	if err != nil {
		return Ranking{}, fmt.Errorf("%w: %w", common.ErrAcquisition, err)
	}
	return Build(table, bindings)
}
