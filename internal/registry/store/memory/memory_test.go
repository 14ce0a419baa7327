package memory_test

import (
	"testing"

	"charity/internal/registry/store"
	"charity/internal/registry/store/memory"
	"charity/internal/registry/store/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		return memory.New()
	})
}
