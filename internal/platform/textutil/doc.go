// Package textutil provides the lightweight text machinery used to compare lecture
// concepts: tokenization, term-frequency fingerprints, cosine and Jaccard similarity,
// HTML stripping for extractor output, and display-title normalization.
//
// Tokens are lowercased, accent-folded, split on non-alphanumeric runs, filtered to
// three or more characters, stripped of common English stopwords, and reduced by a
// plural-only stemmer so "derivatives" and "derivative" collide.
package textutil
