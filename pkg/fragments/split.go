package fragments

// Chunk is one piece of a split value.
type Chunk struct {
	Name  string
	Value string
}

// DefaultChunkSize keeps each environment value under common platform limits.
const DefaultChunkSize = 3500

// Split cuts value into pieces of at most size runes and names them 1..N.
// It never splits a multi-byte character. Empty input yields no chunks.
func Split(value string, size int, name NameFunc) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks []Chunk
	runes := []rune(value)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Name:  name(len(chunks) + 1),
			Value: string(runes[start:end]),
		})
	}
	return chunks
}

// ChunkLookup exposes chunks as a Lookup so a split can be verified with Resolve.
func ChunkLookup(chunks []Chunk) Lookup {
	m := make(map[string]string, len(chunks))
	for _, c := range chunks {
		m[c.Name] = c.Value
	}
	return MapLookup(m)
}
