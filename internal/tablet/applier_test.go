package tablet

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApplierInvalidConfig(t *testing.T) {
	c := &Coordinator{}
	tcs := []struct {
		name string
		cfg  applierConfig
	}{
		{
			name: "ZeroQueueCapacity",
			cfg:  applierConfig{queueCapacity: 0, concurrency: 1, c: c, logger: zap.NewNop()},
		},
		{
			name: "NegativeQueueCapacity",
			cfg:  applierConfig{queueCapacity: -1, concurrency: 1, c: c, logger: zap.NewNop()},
		},
		{
			name: "ZeroConcurrency",
			cfg:  applierConfig{queueCapacity: 1, concurrency: 0, c: c, logger: zap.NewNop()},
		},
		{
			name: "NilCoordinator",
			cfg:  applierConfig{queueCapacity: 1, concurrency: 1, logger: zap.NewNop()},
		},
		{
			name: "NilLogger",
			cfg:  applierConfig{queueCapacity: 1, concurrency: 1, c: c},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newApplier(tc.cfg)
			require.Error(t, err)
		})
	}
}
