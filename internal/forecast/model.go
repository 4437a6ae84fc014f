package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
)

// Model predicts production in kWh for feature vectors laid out in columns order.
type Model interface {
	Predict(ctx context.Context, columns []string, vectors []domain.Vector) ([]float64, error)
}

// FormulaModel predicts with the noise-free label formula. It is the default
// model when no remote scoring endpoint is configured.
type FormulaModel struct {
	BaseCapacityKW float64
}

// NewFormulaModel creates a FormulaModel; a non-positive capacity uses the default.
func NewFormulaModel(baseCapacityKW float64) *FormulaModel {
	if baseCapacityKW <= 0 {
		baseCapacityKW = domain.DefaultBaseCapacityKW
	}
	return &FormulaModel{BaseCapacityKW: baseCapacityKW}
}

func (m *FormulaModel) Predict(_ context.Context, columns []string, vectors []domain.Vector) ([]float64, error) {
	tempIdx, cloudIdx := indexOf(columns, domain.ColTemperature), indexOf(columns, domain.ColCloudCover)
	if tempIdx < 0 || cloudIdx < 0 {
		return nil, fmt.Errorf("formula model: columns must include %s and %s", domain.ColTemperature, domain.ColCloudCover)
	}

	out := make([]float64, len(vectors))
	for i, vec := range vectors {
		if len(vec) != len(columns) {
			return nil, fmt.Errorf("formula model: vector %d has %d values, want %d", i, len(vec), len(columns))
		}
		temp, cloud := vec[tempIdx], vec[cloudIdx]
		if math.IsNaN(temp) || math.IsNaN(cloud) {
			out[i] = math.NaN()
			continue
		}
		c := int(math.Round(cloud))
		out[i] = domain.FormulaEnergy(&temp, &c, m.BaseCapacityKW)
	}
	return out, nil
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
