package service

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/pageza/mealbyme/backend/internal/types"
)

// EmbeddingDims matches the vector(3) column of saved_recipes.
const EmbeddingDims = 3

// searchTerms lowercases text and splits it into letter/digit words.
func searchTerms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// TermEmbedding hashes every word of text into one of EmbeddingDims buckets
// and returns the normalized bucket counts. Texts sharing words land close
// together; an empty text is the zero vector.
func TermEmbedding(text string) pgvector.Vector {
	vec := make([]float32, EmbeddingDims)
	for _, term := range searchTerms(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		vec[h.Sum32()%EmbeddingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return pgvector.NewVector(vec)
}

// RecipeEmbedding embeds a recipe's title and ingredient names.
func RecipeEmbedding(r *types.Recipe) pgvector.Vector {
	parts := []string{r.Title}
	for _, ing := range r.Ingredients {
		parts = append(parts, ing.Name)
	}
	return TermEmbedding(strings.Join(parts, " "))
}

// MatchesQuery reports whether every word of q appears in the title or in
// one of the ingredient names.
func MatchesQuery(title string, ingredients []types.Ingredient, q string) bool {
	haystack := []string{strings.ToLower(title)}
	for _, ing := range ingredients {
		haystack = append(haystack, strings.ToLower(ing.Name))
	}
	for _, term := range searchTerms(q) {
		found := false
		for _, h := range haystack {
			if strings.Contains(h, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
