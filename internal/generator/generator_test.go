package generator_test

import (
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/glizzus/oggdca/internal/generator"
)

var uuidV4 = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestUUIDV4Generator_Next_Concurrent(t *testing.T) {
	gen := generator.UUIDV4Generator{}

	var mu sync.Mutex
	seen := make(map[string]struct{})

	total := 10000
	concurrency := 10
	batchSize := total / concurrency

	var wg sync.WaitGroup
	wg.Add(concurrency)

	for range concurrency {
		go func() {
			defer wg.Done()
			for range batchSize {
				id, err := gen.Next()
				if err != nil {
					t.Error("expected no error, got:", err)
					return
				}
				mu.Lock()
				if _, ok := seen[id]; ok {
					mu.Unlock()
					t.Errorf("expected a unique ID, got duplicate: %s", id)
					return
				}
				seen[id] = struct{}{}
				mu.Unlock()

				if !uuidV4.MatchString(id) {
					t.Errorf("expected valid UUID format, got %s", id)
					return
				}
			}
		}()
	}

	wg.Wait()
}

type fixedGenerator struct {
	id  string
	err error
}

func (g fixedGenerator) Next() (string, error) { return g.id, g.err }

func TestObjectKeyGenerator(t *testing.T) {
	tc := []struct {
		name     string
		gen      generator.ObjectKeyGenerator
		expected generator.ObjectKey
	}{
		{
			name:     "with prefix",
			gen:      generator.ObjectKeyGenerator{Prefix: "dca", IDs: fixedGenerator{id: "abc"}},
			expected: generator.ObjectKey{ID: "abc", Key: "dca/abc.dca"},
		},
		{
			name:     "without prefix",
			gen:      generator.ObjectKeyGenerator{IDs: fixedGenerator{id: "abc"}},
			expected: generator.ObjectKey{ID: "abc", Key: "abc.dca"},
		},
	}

	for _, test := range tc {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.gen.Next()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != test.expected {
				t.Errorf("expected %+v, got %+v", test.expected, got)
			}
		})
	}
}

func TestObjectKeyGeneratorDefaultsToUUID(t *testing.T) {
	gen := generator.ObjectKeyGenerator{Prefix: "dca"}
	got, err := gen.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !uuidV4.MatchString(got.ID) {
		t.Errorf("expected a UUIDv4 ID, got %s", got.ID)
	}
	if got.Key != "dca/"+got.ID+".dca" {
		t.Errorf("unexpected key %s", got.Key)
	}
}

func TestObjectKeyGeneratorError(t *testing.T) {
	boom := errors.New("entropy exhausted")
	gen := generator.ObjectKeyGenerator{IDs: fixedGenerator{err: boom}}
	if _, err := gen.Next(); !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
}
