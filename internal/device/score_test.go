package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreKindOrdering(t *testing.T) {
	// A maxed-out CPU must still score below a minimal GPU of either class.
	cpu := Descriptor{Kind: KindCPU, MemoryBytes: 512 << 30, Model: "h100"}
	integrated := Descriptor{Kind: KindIntegratedGPU, MemoryBytes: 0}
	discrete := Descriptor{Kind: KindDiscreteGPU, MemoryBytes: 0}

	assert.Less(t, Score(cpu), Score(integrated))
	assert.Less(t, Score(integrated), Score(discrete))
}

func TestScoreMemoryWeightIsCapped(t *testing.T) {
	small := Descriptor{Kind: KindDiscreteGPU, MemoryBytes: 8 << 30}
	atCap := Descriptor{Kind: KindDiscreteGPU, MemoryBytes: 64 << 30}
	beyondCap := Descriptor{Kind: KindDiscreteGPU, MemoryBytes: 256 << 30}

	assert.Equal(t, Score(atCap), Score(beyondCap))
	assert.Equal(t, Score(small)+56, Score(atCap))
}

func TestScoreModelBonusOrderedByGeneration(t *testing.T) {
	mk := func(model string) Descriptor {
		return Descriptor{Kind: KindDiscreteGPU, MemoryBytes: 16 << 30, Model: model}
	}

	assert.Greater(t, Score(mk("NVIDIA H100 SXM")), Score(mk("NVIDIA A100 PCIe")))
	assert.Greater(t, Score(mk("NVIDIA A100 PCIe")), Score(mk("Tesla V100")))
	assert.Greater(t, Score(mk("GeForce RTX 4090")), Score(mk("GeForce RTX 3090")))
	assert.Greater(t, Score(mk("GeForce RTX 3090")), Score(mk("GeForce RTX 2080")))
	// Unknown models get no bonus, not an error.
	assert.Equal(t, Score(mk("Mystery GPU")), Score(Descriptor{Kind: KindDiscreteGPU, MemoryBytes: 16 << 30}))
}

func TestScoreIsDeterministic(t *testing.T) {
	d := Descriptor{Kind: KindDiscreteGPU, MemoryBytes: 24 << 30, Model: "GeForce RTX 4090"}
	first := Score(d)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Score(d))
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "DiscreteGPU", KindDiscreteGPU.String())
	assert.Equal(t, "IntegratedGPU", KindIntegratedGPU.String())
	assert.Equal(t, "CPU", KindCPU.String())
}
