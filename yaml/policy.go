// Package yaml loads the strategy policy table from YAML.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/pagetext"
	yamlv3 "gopkg.in/yaml.v3"
)

// policyFile is the on-disk layout of a policy table.
//
//	extend_defaults: true
//	hosts:
//	  - app.example.com
//	substrings:
//	  - /dashboard/
type policyFile struct {
	ExtendDefaults bool     `yaml:"extend_defaults"`
	Hosts          []string `yaml:"hosts"`
	Substrings     []string `yaml:"substrings"`
}

// LoadPolicy decodes a policy table from r. With extend_defaults set, the
// listed hosts and substrings are added to pagetext.DefaultPolicy; otherwise
// they replace it. Unknown keys are rejected.
func LoadPolicy(r io.Reader) (*pagetext.Policy, error) {
	var pf policyFile
	dec := yamlv3.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse policy yaml: %w", err)
	}

	policy := &pagetext.Policy{}
	if pf.ExtendDefaults {
		policy = pagetext.DefaultPolicy()
	}
	policy.Hosts = append(policy.Hosts, pf.Hosts...)
	policy.Substrings = append(policy.Substrings, pf.Substrings...)
	return policy, nil
}

// LoadPolicyFile reads a policy table from path.
func LoadPolicyFile(path string) (*pagetext.Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return LoadPolicy(bytes.NewReader(b))
}
