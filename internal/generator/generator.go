package generator

import (
	"path"

	"github.com/google/uuid"
)

// Generator is an interface that defines a method to generate a new value of type T.
// This can be used to generate unique identifiers, lazily iterate, etc.
type Generator[T any] interface {
	Next() (T, error)
}

// UUIDV4Generator is a generator that produces UUIDv4 strings.
// It implements the Generator interface.
type UUIDV4Generator struct{}

func (g *UUIDV4Generator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var _ Generator[string] = &UUIDV4Generator{}

// ObjectKey is where a track's container is stored.
type ObjectKey struct {
	ID  string
	Key string
}

// ObjectKeyGenerator pairs a fresh track ID with its storage key,
// "<prefix>/<id>.dca".
type ObjectKeyGenerator struct {
	Prefix string
	IDs    Generator[string]
}

func (g *ObjectKeyGenerator) Next() (ObjectKey, error) {
	ids := g.IDs
	if ids == nil {
		ids = &UUIDV4Generator{}
	}
	id, err := ids.Next()
	if err != nil {
		return ObjectKey{}, err
	}
	return ObjectKey{ID: id, Key: path.Join(g.Prefix, id+".dca")}, nil
}

var _ Generator[ObjectKey] = &ObjectKeyGenerator{}
