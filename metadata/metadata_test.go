package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetadata = `
descriptor_names:
  - r
  - g
  - b
labels:
  - red
  - green
  - blue
forest:
  trees: 8
  reservoir_capacity: 100
  max_depth: 10
  split_candidates: 16
  min_examples_for_split: 30
  min_information_gain: 0.01
  seed: 42
`

func TestReadMetadata(t *testing.T) {
	md, err := ReadMetadata([]byte(sampleMetadata))
	require.NoError(t, err)

	assert.Equal(t, []string{"r", "g", "b"}, md.DescriptorNames)
	assert.Equal(t, 3, md.DescriptorSize())
	assert.Equal(t, []string{"red", "green", "blue"}, md.Labels)

	assert.Equal(t, 8, md.Forest.Trees)
	assert.Equal(t, 100, md.Forest.ReservoirCapacity)
	assert.Equal(t, 10, md.Forest.MaxDepth)
	assert.Equal(t, 16, md.Forest.SplitCandidates)
	assert.Equal(t, 30, md.Forest.MinExamplesForSplit)
	assert.InDelta(t, 0.01, md.Forest.MinInformationGain, 1e-12)
	assert.Equal(t, int64(42), md.Forest.Seed)
	assert.NoError(t, md.Forest.Validate())
}

func TestReadMetadataRejectsIncompleteDocuments(t *testing.T) {
	_, err := ReadMetadata([]byte("labels:\n  - red\n"))
	assert.Error(t, err, "metadata without descriptors must be rejected")

	_, err = ReadMetadata([]byte("descriptor_names:\n  - r\n"))
	assert.Error(t, err, "metadata without labels must be rejected")

	_, err = ReadMetadata([]byte("\tnot yaml"))
	assert.Error(t, err)
}

func TestReadMetadataFromFileMissing(t *testing.T) {
	_, err := ReadMetadataFromFile("/no/such/file.yml")
	assert.Error(t, err)
}
