package service

import (
	"context"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"io"
	"nodeconductor/internal/database"
	"nodeconductor/internal/types"
	"time"
)

type (
	SourceService interface {
		Create(ctx context.Context, params types.CreateSourceParams) (*types.BackupSource, error)
		// Import creates every source listed in a YAML document. Nothing is
		// created when one of them is invalid.
		Import(ctx context.Context, r io.Reader) ([]*types.BackupSource, error)
		Get(ctx context.Context, id uuid.UUID) (*types.BackupSource, error)
		List(ctx context.Context) ([]*types.BackupSource, error)
	}

	// SourceManifest is the YAML layout read by Import.
	SourceManifest struct {
		Sources []types.CreateSourceParams `yaml:"sources"`
	}

	sourceService struct {
		sourceRepository database.BackupSourceRepository
		validator        *validator.Validate
	}
)

func NewSourceService(sources database.BackupSourceRepository) SourceService {
	return &sourceService{
		sourceRepository: sources,
		validator:        newValidator(),
	}
}

func (s *sourceService) Create(ctx context.Context, params types.CreateSourceParams) (*types.BackupSource, error) {
	if err := runValidator(s.validator, params); err != nil {
		return nil, err
	}

	source := newSource(params)
	if err := s.sourceRepository.Save(ctx, source); err != nil {
		return nil, errors.Wrap(err, "failed to save backup source")
	}
	return source, nil
}

func (s *sourceService) Import(ctx context.Context, r io.Reader) ([]*types.BackupSource, error) {
	manifest := SourceManifest{}
	if err := yaml.NewDecoder(r).Decode(&manifest); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to parse source manifest")
	}

	for i, params := range manifest.Sources {
		if err := runValidator(s.validator, params); err != nil {
			return nil, errors.Wrapf(err, "source #%d", i+1)
		}
	}

	result := make([]*types.BackupSource, 0, len(manifest.Sources))
	for _, params := range manifest.Sources {
		source := newSource(params)
		if err := s.sourceRepository.Save(ctx, source); err != nil {
			return result, errors.Wrapf(err, "failed to save backup source %s", params.Name)
		}
		result = append(result, source)
	}
	return result, nil
}

func (s *sourceService) Get(ctx context.Context, id uuid.UUID) (*types.BackupSource, error) {
	return s.sourceRepository.FindByID(ctx, id)
}

func (s *sourceService) List(ctx context.Context) ([]*types.BackupSource, error) {
	return s.sourceRepository.FindAll(ctx)
}

func newSource(params types.CreateSourceParams) *types.BackupSource {
	return &types.BackupSource{
		ID:        uuid.New(),
		Kind:      params.Kind,
		Name:      params.Name,
		Path:      params.Path,
		CreatedAt: time.Now().UTC(),
	}
}
