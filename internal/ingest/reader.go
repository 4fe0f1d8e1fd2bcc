package ingest

import (
	"github.com/Whamp/sessionkg/internal/contentstore"
	"github.com/Whamp/sessionkg/internal/types"
)

// ContentStoreReader adapts a contentstore.Store to types.NodeReader, the
// narrow collaborator interface the embedding backfill uses to rebuild a
// Node from its data file.
type ContentStoreReader struct {
	Store *contentstore.Store
}

// Read implements types.NodeReader.
func (r ContentStoreReader) Read(dataFile string) (*types.Node, error) {
	return r.Store.ReadFromPath(dataFile)
}
