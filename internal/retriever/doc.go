// Package retriever answers retrieval queries over the working tree's
// BM25 index (Retrieve) and, given a frozen tree with an embeddings
// artifact, a hybrid BM25+cosine ranking (RetrieveWithEmbeddings). Every
// candidate query is parameterized and carries an explicit ORDER BY
// tiebreaker so results are deterministic across runs.
package retriever
