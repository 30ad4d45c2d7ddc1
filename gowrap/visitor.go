package gowrap

import "github.com/sirupsen/logrus"

// Visitor is implemented by every emission backend. A pass calls VisitType
// once per record and VisitMethods once per operation collection, in source
// order. Backends must not depend on each other.
type Visitor interface {
	VisitType(t *TypeDecl) error
	VisitMethods(set *MethodSet) error
}

// Model is everything a pass extracted.
type Model struct {
	Package string
	Types   []*TypeDecl
	Sets    []*MethodSet
}

// Pass drives extraction and emission over one source. It is single
// threaded: each declaration is extracted and handed to every visitor before
// the next one is looked at. The first error ends the pass. The extractor's
// mapper is told about the source's type declarations first.
type Pass struct {
	Extractor *Extractor
	Visitors  []Visitor
	Log       logrus.FieldLogger
}

// Run executes the pass.
func (p *Pass) Run(src *Source) (*Model, error) {
	log := p.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	model := &Model{Package: src.Package}
	if src.Types != nil {
		p.Extractor.Mapper.Declare(src.Types)
	}

	for _, raw := range src.Decls {
		ex, err := p.Extractor.Extract(raw)
		if err != nil {
			return nil, err
		}
		switch {
		case ex.Type != nil:
			model.Types = append(model.Types, ex.Type)
			for _, v := range p.Visitors {
				if err := v.VisitType(ex.Type); err != nil {
					return nil, err
				}
			}
		case ex.Methods != nil:
			model.Sets = append(model.Sets, ex.Methods)
			for _, v := range p.Visitors {
				if err := v.VisitMethods(ex.Methods); err != nil {
					return nil, err
				}
			}
		}
	}

	log.WithFields(logrus.Fields{
		"function": "Pass.Run",
		"package":  src.Package,
		"types":    len(model.Types),
		"sets":     len(model.Sets),
	}).Debug("Extraction pass complete")
	return model, nil
}
