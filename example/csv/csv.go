/*
Package csv provides methods to read labelled examples from and
write them to CSV streams.

The expected layout is a header row naming the descriptor columns
followed by a final label column, and then one row per example with
a float value per descriptor column and the label string in the last
column.
*/
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/C8PAN/rafl/example"
)

/*
ReadExamples takes an io.Reader for a CSV stream and returns the
examples parsed from it or an error. The descriptor length is taken
from the header row: every column but the last is a descriptor
component, the last is the label.
*/
func ReadExamples(reader io.Reader) ([]*example.Example[string], error) {
	var examples []*example.Example[string]
	err := ReadExamplesByRow(reader, func(_ int, e *example.Example[string]) (bool, error) {
		examples = append(examples, e)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return examples, nil
}

/*
ReadExamplesByRow takes an io.Reader for a CSV stream and a lambda
function on an integer and an example that returns a boolean value.
It parses the examples from the reader and for each calls the lambda
with the example and its index as parameters. If the lambda returns
true it continues with the next example, otherwise it stops. An
error is returned if a row cannot be read or parsed, or if the
lambda returns one.
*/
func ReadExamplesByRow(reader io.Reader, lambda func(int, *example.Example[string]) (bool, error)) error {
	r := csv.NewReader(reader)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading CSV header: %v", err)
	}
	if len(header) < 2 {
		return fmt.Errorf("reading CSV header: expected at least one descriptor column and a label column, got %d columns", len(header))
	}
	descriptorSize := len(header) - 1
	for i := 0; ; i++ {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading CSV row %d: %v", i+1, err)
		}
		e, err := parseExample(row, descriptorSize)
		if err != nil {
			return fmt.Errorf("parsing CSV row %d: %v", i+1, err)
		}
		ok, err := lambda(i, e)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

/*
WriteExamples takes an io.Writer, a slice of descriptor column names
and a slice of examples and writes them as CSV onto the writer: a
header row with the descriptor names and a final "label" column,
then one row per example. An error is returned if an example's
descriptor length does not match the header or the write fails.
*/
func WriteExamples(writer io.Writer, descriptorNames []string, examples []*example.Example[string]) error {
	w := csv.NewWriter(writer)
	header := append(append([]string{}, descriptorNames...), "label")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %v", err)
	}
	for i, e := range examples {
		d := e.Descriptor()
		if len(d) != len(descriptorNames) {
			return fmt.Errorf("writing CSV row %d: descriptor has %d components, header has %d", i+1, len(d), len(descriptorNames))
		}
		row := make([]string, 0, len(d)+1)
		for _, v := range d {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		row = append(row, e.Label())
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %v", i+1, err)
		}
	}
	w.Flush()
	return w.Error()
}

func parseExample(row []string, descriptorSize int) (*example.Example[string], error) {
	if len(row) != descriptorSize+1 {
		return nil, fmt.Errorf("expected %d columns, got %d", descriptorSize+1, len(row))
	}
	d := make(example.Descriptor, descriptorSize)
	for i := 0; i < descriptorSize; i++ {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %v", i+1, err)
		}
		d[i] = v
	}
	return example.New(d, row[descriptorSize]), nil
}
