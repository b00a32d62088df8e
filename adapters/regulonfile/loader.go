package regulonfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"goviper/domain/core"
	"goviper/domain/regulon"
	"goviper/internal"

	"gopkg.in/yaml.v3"
)

// Document is the YAML and JSON representation of a regulatory network
type Document struct {
	Regulators []RegulatorDoc `yaml:"regulators" json:"regulators"`
}

// RegulatorDoc is one regulator of a YAML network
type RegulatorDoc struct {
	Name    string      `yaml:"name" json:"name"`
	Targets []TargetDoc `yaml:"targets" json:"targets"`
}

// TargetDoc is one interaction. A missing likelihood is imputed as 1.
type TargetDoc struct {
	Gene       string   `yaml:"gene" json:"gene"`
	Mode       float64  `yaml:"mode" json:"mode"`
	Likelihood *float64 `yaml:"likelihood,omitempty" json:"likelihood,omitempty"`
}

// Loader reads networks from YAML documents or regulator/target/mode
// [/likelihood] TSV tables
type Loader struct {
	logger *internal.Logger
}

// NewLoader creates a network loader
func NewLoader(logger *internal.Logger) *Loader {
	return &Loader{logger: logger.OrDefault().With("regulonfile")}
}

// LoadNetwork reads the network at path, choosing the format from the
// extension
func (l *Loader) LoadNetwork(ctx context.Context, path string) (*regulon.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open network file: %w", err)
	}
	defer f.Close()

	var net *regulon.Network
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		net, err = l.ReadYAML(f)
	case ".tsv", ".txt", ".tab":
		net, err = l.ReadTSV(f)
	default:
		return nil, fmt.Errorf("unsupported network file type: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	l.logger.Debug("loaded %s from %s", net, filepath.Base(path))
	return net, nil
}

// ReadYAML decodes a YAML network document
func (l *Loader) ReadYAML(r io.Reader) (*regulon.Network, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRegulon, err)
	}
	return doc.Network()
}

// Network validates the document and builds a network in document order
func (d *Document) Network() (*regulon.Network, error) {
	net, err := regulon.NewNetwork()
	if err != nil {
		return nil, err
	}
	for _, rd := range d.Regulators {
		targets := make([]string, len(rd.Targets))
		mode := make([]float64, len(rd.Targets))
		lik := make([]float64, len(rd.Targets))
		for k, t := range rd.Targets {
			targets[k] = t.Gene
			mode[k] = t.Mode
			lik[k] = 1
			if t.Likelihood != nil {
				lik[k] = *t.Likelihood
			}
		}
		r, err := regulon.NewRegulator(rd.Name, targets, mode, lik)
		if err != nil {
			return nil, err
		}
		if err := net.Add(r); err != nil {
			return nil, err
		}
	}
	return net, nil
}

// ReadTSV reads a tab separated interaction table with columns regulator,
// target, mode and optionally likelihood. A header row is recognised by a
// non-numeric mode column. Regulators and targets keep the order in which
// they first appear.
func (l *Loader) ReadTSV(r io.Reader) (*regulon.Network, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	type builder struct {
		targets []string
		mode    []float64
		lik     []float64
	}
	var order []string
	byName := make(map[string]*builder)

	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidRegulon, err)
		}
		line++
		if len(rec) < 3 {
			return nil, core.NewRegulonError(fmt.Sprintf("line %d", line), "expected regulator, target and mode columns")
		}
		mode, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, core.NewRegulonError(fmt.Sprintf("line %d", line), fmt.Sprintf("mode %q is not numeric", rec[2]))
		}
		lik := 1.0
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			lik, err = strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
			if err != nil {
				return nil, core.NewRegulonError(fmt.Sprintf("line %d", line), fmt.Sprintf("likelihood %q is not numeric", rec[3]))
			}
		}

		name := strings.TrimSpace(rec[0])
		b, ok := byName[name]
		if !ok {
			b = &builder{}
			byName[name] = b
			order = append(order, name)
		}
		b.targets = append(b.targets, strings.TrimSpace(rec[1]))
		b.mode = append(b.mode, mode)
		b.lik = append(b.lik, lik)
	}

	regs := make([]*regulon.Regulator, 0, len(order))
	for _, name := range order {
		b := byName[name]
		reg, err := regulon.NewRegulator(name, b.targets, b.mode, b.lik)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regulon.NewNetwork(regs...)
}
