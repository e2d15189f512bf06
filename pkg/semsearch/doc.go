// Package semsearch embeds the semantic passage search engine in a Go program.
//
// The client reads a line-per-passage corpus, embeds it once, persists the vectors
// (to a file or a shared Redis/Valkey key), and ranks passages by cosine similarity:
//
//	client, _ := semsearch.New(ctx,
//	    semsearch.WithCorpusFile("data/corpus.txt"),
//	    semsearch.WithCacheFile("data/corpus_embeddings.bin"),
//	)
//	defer client.Close()
//
//	results, _ := client.Search(ctx, "a cat on a mat", 3)
//	for _, r := range results {
//	    fmt.Printf("%.4f %s\n", r.Score, r.Text)
//	}
//
// Without WithEmbedder the client uses an offline feature-hashing embedder.
package semsearch
