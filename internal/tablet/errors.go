package tablet

import "fmt"

var (
	errEngineIsNil      = fmt.Errorf("tablet: replication engine is nil")
	errStorageIsNil     = fmt.Errorf("tablet: storage is nil")
	errLoggerIsNil      = fmt.Errorf("tablet: logger is nil")
	errOperationIsNil   = fmt.Errorf("tablet: operation is nil")
	errCoordinatorIsNil = fmt.Errorf("tablet: coordinator is nil")
)

func validateQueueCapacity(name string, capacity int) error {
	if capacity < minQueueCapacity {
		return fmt.Errorf("tablet: %s queue capacity must be at least %d", name, minQueueCapacity)
	}
	if capacity > maxQueueCapacity {
		return fmt.Errorf("tablet: %s queue capacity must be less than %d", name, maxQueueCapacity)
	}
	return nil
}
