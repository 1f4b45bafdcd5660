package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

func TestGLPoints_ReferenceValues(t *testing.T) {
	tests := []struct {
		name      string
		total     float64
		bw        float64
		sex       string
		equipment string
		event     string
		want      float64
	}{
		{"male classic full power", 600, 83, "M", "Raw", "SBD", 83.06},
		{"female classic full power", 400, 63, "F", "Classic", "SBD", 87.51},
		{"male classic bench", 180, 93, "M", "Sleeves", "B", 85.40},
		{"male equipped full power", 700, 105, "M", "Single-ply", "SBD", 71.55},
		{"bodyweight at floor", 500, 35, "M", "Wraps", "SBD", 109.40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GLPoints(tt.total, tt.bw, tt.sex, tt.equipment, tt.event)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestGLPoints_DegenerateInputsYieldZero(t *testing.T) {
	assert.Zero(t, GLPoints(0, 80, "M", "Raw", "SBD"))
	assert.Zero(t, GLPoints(500, 30, "M", "Raw", "SBD"))
	assert.Zero(t, GLPoints(500, 34.99, "F", "Raw", "SBD"))
	assert.Zero(t, GLPoints(500, 80, "X", "Raw", "SBD"))
	assert.Zero(t, GLPoints(500, 80, "M", "Bench shirt", "SBD"))
	assert.Zero(t, GLPoints(200, 80, "M", "Raw", "S"))
	assert.Zero(t, GLPoints(200, 80, "M", "Raw", "D"))
	assert.Zero(t, GLPoints(400, 80, "M", "Raw", "SD"))

	assert.Zero(t, GLPoints(math.NaN(), 80, "M", "Raw", "SBD"))
	assert.Zero(t, GLPoints(math.Inf(1), 80, "M", "Raw", "SBD"))
	assert.Zero(t, GLPoints(500, math.Inf(1), "M", "Raw", "SBD"))
	assert.Zero(t, GLPoints(500, math.NaN(), "M", "Raw", "SBD"))
	assert.Zero(t, GLPoints(math.Inf(-1), math.Inf(-1), "F", "Raw", "SBD"))
}

func TestGLPoints_NormalizesLabels(t *testing.T) {
	base := GLPoints(550, 90, "M", "Classic", "SBD")
	assert.Equal(t, base, GLPoints(550, 90, "mx", "raw", "sbd"))
	assert.Equal(t, base, GLPoints(550, 90, "m", "WRAPS", "SBD"))

	equipped := GLPoints(550, 90, "M", "Equipped", "SBD")
	assert.Equal(t, equipped, GLPoints(550, 90, "M", "Multi-ply", "SBD"))
	assert.Equal(t, equipped, GLPoints(550, 90, "M", "Unlimited", "SBD"))
	assert.NotEqual(t, base, equipped)
}

func TestGLPoints_Deterministic(t *testing.T) {
	first := GLPoints(612.5, 82.35, "F", "Raw", "SBD")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, GLPoints(612.5, 82.35, "F", "Raw", "SBD"))
	}
}

func TestFormula_ZeroDenominator(t *testing.T) {
	// a == b with c == 0 collapses the denominator to zero.
	f := NewFormula(Table{
		{shared.SexMale, shared.EquipmentClassic, shared.MeetFullPower}: {100, 100, 0},
	})
	assert.Zero(t, f.Points(500, 80, shared.SexMale, shared.EquipmentClassic, shared.MeetFullPower))
}

func TestFormula_MissingCombination(t *testing.T) {
	f := NewFormula(Table{})
	assert.Zero(t, f.Points(500, 80, shared.SexMale, shared.EquipmentClassic, shared.MeetFullPower))
}

func TestRound2_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 1.25, Round2(1.245000001))
	assert.Equal(t, 2.5, Round2(2.5))
	assert.Equal(t, 10.13, Round2(10.125))
	assert.Equal(t, -0.13, Round2(-0.125))
	assert.Equal(t, 1.0, Round2(1.005), "1.005 is stored just below the half")
}
