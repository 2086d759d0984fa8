/*
Package metadata provides methods to parse dataset descriptions,
also known as metadata, from YAML documents: the names of the
descriptor features, the labels that may appear, and optionally the
forest configuration to train with.
*/
package metadata

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/C8PAN/rafl"
)

/*
Metadata describes a dataset: the ordered names of its descriptor
features, the labels examples may carry, and the forest
configuration to train on it.
*/
type Metadata struct {
	DescriptorNames []string          `yaml:"descriptor_names"`
	Labels          []string          `yaml:"labels"`
	Forest          rafl.ForestConfig `yaml:"forest"`
}

/*
DescriptorSize returns the number of features of the dataset's
descriptors.
*/
func (md *Metadata) DescriptorSize() int {
	return len(md.DescriptorNames)
}

/*
ReadMetadata takes a slice of bytes with a dataset description in
YAML and returns the metadata parsed from it or an error. The YAML
is expected to be an object with a descriptor_names property listing
the descriptor features in order, a labels property listing the
labels that may appear, and a forest property with the forest
configuration.
*/
func ReadMetadata(md []byte) (*Metadata, error) {
	metadata := &Metadata{}
	if err := yaml.Unmarshal(md, metadata); err != nil {
		return nil, fmt.Errorf("parsing yml metadata: %v", err)
	}
	if len(metadata.DescriptorNames) == 0 {
		return nil, fmt.Errorf("metadata file has no descriptor information")
	}
	if len(metadata.Labels) == 0 {
		return nil, fmt.Errorf("metadata file has no label information")
	}
	return metadata, nil
}

/*
ReadMetadataFromFile takes a filepath string, reads its contents and
uses ReadMetadata to parse it and return the dataset metadata or an
error. If the file indicated by the filepath cannot be opened for
reading an error will be returned.
*/
func ReadMetadataFromFile(filepath string) (*Metadata, error) {
	md, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading metadata yml file %s: %v", filepath, err)
	}
	metadata, err := ReadMetadata(md)
	if err != nil {
		err = fmt.Errorf("parsing metadata yml file %s: %v", filepath, err)
	}
	return metadata, err
}
