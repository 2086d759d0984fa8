package csv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/C8PAN/rafl/example"
)

const sampleCSV = `r,g,b,label
0.9,0.1,0.1,red
0.1,0.9,0.2,green
0.15,0.2,0.95,blue
`

func TestReadExamples(t *testing.T) {
	examples, err := ReadExamples(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, examples, 3)

	assert.Equal(t, example.Descriptor{0.9, 0.1, 0.1}, examples[0].Descriptor())
	assert.Equal(t, "red", examples[0].Label())
	assert.Equal(t, "green", examples[1].Label())
	assert.Equal(t, example.Descriptor{0.15, 0.2, 0.95}, examples[2].Descriptor())
}

func TestReadExamplesByRowStops(t *testing.T) {
	var seen int
	err := ReadExamplesByRow(strings.NewReader(sampleCSV), func(i int, e *example.Example[string]) (bool, error) {
		seen++
		return i < 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestReadExamplesRejectsBadInput(t *testing.T) {
	_, err := ReadExamples(strings.NewReader("label\nred\n"))
	assert.Error(t, err, "header must have at least one descriptor column")

	_, err = ReadExamples(strings.NewReader("x,label\nnot-a-number,red\n"))
	assert.Error(t, err)
}

func TestWriteExamplesRoundtrip(t *testing.T) {
	examples := []*example.Example[string]{
		example.New(example.Descriptor{1.5, -2}, "wall"),
		example.New(example.Descriptor{0, 3.25}, "floor"),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteExamples(&buf, []string{"x", "y"}, examples))

	parsed, err := ReadExamples(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, examples[0].Descriptor(), parsed[0].Descriptor())
	assert.Equal(t, examples[0].Label(), parsed[0].Label())
	assert.Equal(t, examples[1].Descriptor(), parsed[1].Descriptor())
	assert.Equal(t, examples[1].Label(), parsed[1].Label())
}

func TestWriteExamplesRejectsMismatchedDescriptor(t *testing.T) {
	var buf bytes.Buffer
	err := WriteExamples(&buf, []string{"x", "y"}, []*example.Example[string]{
		example.New(example.Descriptor{1}, "wall"),
	})
	assert.Error(t, err)
}
