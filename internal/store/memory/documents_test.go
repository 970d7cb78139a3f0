package memory

import (
	"testing"

	"go-signpdf/internal/document"
	"go-signpdf/internal/store/storetest"
)

func TestDocumentStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) document.Store {
		return NewDocumentStore()
	})
}
