package memory

import (
	"testing"

	"github.com/magabrotheeeer/speakup/internal/storage/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	storagetest.Run(t, func(*testing.T) storagetest.Repository { return New() })
}
