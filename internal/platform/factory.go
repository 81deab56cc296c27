package platform

import (
	"github.com/aretw0/nbform/pkg/core"
)

// New opens the repository at uri and wires a service around it.
//
//	svc, err := nbform.Open("./notebooks", nbform.WithStrict(true))
func New(uri string, opts ...Option) (*core.Service, error) {
	repo, err := Init(uri, opts...)
	if err != nil {
		return nil, err
	}

	o := apply(opts)
	var serviceOpts []core.ServiceOption
	if o.logger != nil {
		serviceOpts = append(serviceOpts, core.WithServiceLogger(o.logger))
	}
	if o.eventBuffer > 0 {
		serviceOpts = append(serviceOpts, core.WithEventBufferSize(o.eventBuffer))
	}

	return core.NewService(repo, serviceOpts...), nil
}
