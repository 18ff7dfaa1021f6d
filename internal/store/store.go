// Package store keeps the vertices and edges of a job graph in memory.
package store

import (
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// Store is a graph.Store whose vertex attributes can be edited in place.
type Store[K comparable, T any] interface {
	graph.Store[K, T]
	// SetVertexAttribute sets one attribute of the vertex k.
	SetVertexAttribute(k K, key, value string) error
	// Predecessors returns the hashes of the vertices with an edge into k.
	Predecessors(k K) ([]K, error)
}

type vertex[T any] struct {
	value      T
	properties graph.VertexProperties
}

// MemoryStore is a Store backed by maps.
type MemoryStore[K comparable, T any] struct {
	mu       sync.RWMutex
	vertices map[K]*vertex[T]
	out      map[K]map[K]graph.Edge[K]
	in       map[K]map[K]graph.Edge[K]
}

// NewMemoryStore creates an empty store.
func NewMemoryStore[K comparable, T any]() *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		vertices: make(map[K]*vertex[T]),
		out:      make(map[K]map[K]graph.Edge[K]),
		in:       make(map[K]map[K]graph.Edge[K]),
	}
}

func (s *MemoryStore[K, T]) AddVertex(k K, t T, p graph.VertexProperties) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vertices[k]; ok {
		return graph.ErrVertexAlreadyExists
	}
	if p.Attributes == nil {
		p.Attributes = make(map[string]string)
	}
	s.vertices[k] = &vertex[T]{value: t, properties: p}

	return nil
}

func (s *MemoryStore[K, T]) Vertex(k K) (T, graph.VertexProperties, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vertices[k]
	if !ok {
		var zero T
		return zero, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	return v.value, v.properties, nil
}

func (s *MemoryStore[K, T]) SetVertexAttribute(k K, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vertices[k]
	if !ok {
		return errors.Wrapf(graph.ErrVertexNotFound, "vertex %v", k)
	}
	v.properties.Attributes[key] = value

	return nil
}

func (s *MemoryStore[K, T]) RemoveVertex(k K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vertices[k]; !ok {
		return graph.ErrVertexNotFound
	}
	if len(s.in[k]) > 0 || len(s.out[k]) > 0 {
		return graph.ErrVertexHasEdges
	}

	delete(s.in, k)
	delete(s.out, k)
	delete(s.vertices, k)

	return nil
}

func (s *MemoryStore[K, T]) ListVertices() ([]K, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]K, 0, len(s.vertices))
	for k := range s.vertices {
		keys = append(keys, k)
	}

	return keys, nil
}

func (s *MemoryStore[K, T]) VertexCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.vertices), nil
}

func link[K comparable](edges map[K]map[K]graph.Edge[K], from, to K, e graph.Edge[K]) {
	if _, ok := edges[from]; !ok {
		edges[from] = make(map[K]graph.Edge[K])
	}
	edges[from][to] = e
}

func (s *MemoryStore[K, T]) AddEdge(source, target K, e graph.Edge[K]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link(s.out, source, target, e)
	link(s.in, target, source, e)

	return nil
}

func (s *MemoryStore[K, T]) UpdateEdge(source, target K, e graph.Edge[K]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.out[source][target]; !ok {
		return graph.ErrEdgeNotFound
	}
	s.out[source][target] = e
	s.in[target][source] = e

	return nil
}

func (s *MemoryStore[K, T]) RemoveEdge(source, target K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.out[source], target)
	delete(s.in[target], source)

	return nil
}

func (s *MemoryStore[K, T]) Edge(source, target K) (graph.Edge[K], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.out[source][target]
	if !ok {
		return graph.Edge[K]{}, graph.ErrEdgeNotFound
	}

	return e, nil
}

func (s *MemoryStore[K, T]) ListEdges() ([]graph.Edge[K], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []graph.Edge[K]
	for _, targets := range s.out {
		for _, e := range targets {
			edges = append(edges, e)
		}
	}

	return edges, nil
}

func (s *MemoryStore[K, T]) Predecessors(k K) ([]K, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.vertices[k]; !ok {
		return nil, graph.ErrVertexNotFound
	}
	preds := make([]K, 0, len(s.in[k]))
	for p := range s.in[k] {
		preds = append(preds, p)
	}

	return preds, nil
}

// CreatesCycle reports whether an edge from source to target would close a
// cycle, walking the incoming edges of source. graph uses it in place of its
// own predecessor-map based check.
func (s *MemoryStore[K, T]) CreatesCycle(source, target K) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.vertices[source]; !ok {
		return false, errors.Wrapf(graph.ErrVertexNotFound, "vertex %v", source)
	}
	if _, ok := s.vertices[target]; !ok {
		return false, errors.Wrapf(graph.ErrVertexNotFound, "vertex %v", target)
	}
	if source == target {
		return true, nil
	}

	visited := map[K]struct{}{source: {}}
	stack := []K{source}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == target {
			return true, nil
		}
		for p := range s.in[current] {
			if _, ok := visited[p]; ok {
				continue
			}
			visited[p] = struct{}{}
			stack = append(stack, p)
		}
	}

	return false, nil
}
