// Package reembed rebuilds the vector index of every indexed video with the
// currently configured embedding model.
//
// Chunks are read back from the index, embedded again through the
// embedding gateway and upserted as a fresh generation, so chat and
// summarize keep reading the previous vectors until each video is swapped.
// Videos with an ingestion run in flight are skipped.
package reembed
