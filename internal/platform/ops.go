package platform

import (
	"context"
	"fmt"

	"github.com/aretw0/nbform/pkg/adapters/fs"
	"github.com/aretw0/nbform/pkg/core"
	"github.com/aretw0/nbform/pkg/transcode"
)

// Init builds and initializes the repository for uri.
// The uri is adapter-specific; for "fs" it is the notebook directory.
func Init(uri string, opts ...Option) (core.Repository, error) {
	o := apply(opts)

	if o.repository != nil {
		return o.repository, nil
	}

	var repo core.Repository
	var err error

	switch o.adapter {
	case "fs":
		repo, err = initFS(uri, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

// NewTranscoder builds a transcoder from the strict and logger options.
func NewTranscoder(opts ...Option) *transcode.Transcoder {
	return newTranscoder(apply(opts))
}

func newTranscoder(o *options) *transcode.Transcoder {
	return transcode.New(
		transcode.WithStrict(o.strict),
		transcode.WithLogger(o.logger),
	)
}

// initFS handles the configuration of the filesystem adapter.
func initFS(path string, o *options) (*fs.Repository, error) {
	if path == "" {
		path = "."
	}

	t := newTranscoder(o)
	serializers := fs.DefaultSerializers(t)
	for ext, s := range o.serializers {
		serializer, ok := s.(fs.Serializer)
		if !ok {
			if o.logger != nil {
				o.logger.Warn("invalid serializer type ignored", "ext", ext, "expected", "fs.Serializer")
			}
			return nil, fmt.Errorf("serializer for %s must implement fs.Serializer", ext)
		}
		serializers[ext] = serializer
	}

	if o.logger != nil && o.readOnly {
		o.logger.Debug("opening notebooks read-only", "path", path)
	}

	return fs.NewRepository(fs.Config{
		Path:         path,
		MustExist:    o.mustExist,
		ReadOnly:     o.readOnly,
		Strict:       o.strict,
		Pattern:      o.pattern,
		SystemDir:    o.systemDir,
		Logger:       o.logger,
		Transcoder:   t,
		Serializers:  serializers,
		Debounce:     o.debounce,
		ErrorHandler: o.onError,
	}), nil
}
