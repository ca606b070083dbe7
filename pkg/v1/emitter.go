package extract

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb/geojson"
)

// Feature is one extracted entity as it appears in the output array.
type Feature struct {
	ID   int64             `json:"id"`
	Type string            `json:"type"` // "node", "way", or "relation"
	Tags map[string]string `json:"tags"`

	// Geometry is a GeoJSON geometry object with [lon, lat] positions.
	// Relations, and ways none of whose refs resolved, carry null.
	Geometry *geojson.Geometry `json:"geometry"`

	// Members lists a relation's members. Empty for nodes and ways.
	Members []FeatureMember `json:"members,omitempty"`
}

// FeatureMember is one relation member reference.
type FeatureMember struct {
	Type string `json:"type"` // "node", "way", or "relation"
	Ref  int64  `json:"ref"`
	Role string `json:"role,omitempty"`
}

// FeatureSink receives extracted features in file order.
//
// Begin is called once before the first feature, End once after the
// last. Implementations are consumed from a single goroutine.
type FeatureSink interface {
	Begin() error
	Emit(f *Feature) error
	End() error
}

// jsonEmitter streams features as a JSON array. Each feature is
// marshaled and written as it arrives; the feature set is never held in
// memory.
type jsonEmitter struct {
	w       *bufio.Writer
	emitted int
}

func newJSONEmitter(w io.Writer) *jsonEmitter {
	return &jsonEmitter{w: bufio.NewWriter(w)}
}

func (e *jsonEmitter) Begin() error {
	e.emitted = 0
	if _, err := e.w.WriteString("["); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func (e *jsonEmitter) Emit(f *Feature) error {
	sep := "\n"
	if e.emitted > 0 {
		sep = ",\n"
	}
	if _, err := e.w.WriteString(sep); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal %s %d: %w", f.Type, f.ID, err)
	}
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	e.emitted++
	return nil
}

func (e *jsonEmitter) End() error {
	if _, err := e.w.WriteString("\n]\n"); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
