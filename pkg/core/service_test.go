package core_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nbform/pkg/core"
)

// MockRepository implements core.Repository in memory.
type MockRepository struct {
	notebooks map[string]*core.Notebook
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		notebooks: make(map[string]*core.Notebook),
	}
}

func (m *MockRepository) Save(ctx context.Context, id string, nb *core.Notebook) error {
	m.notebooks[id] = nb.Clone()
	return nil
}

func (m *MockRepository) Get(ctx context.Context, id string) (*core.Notebook, error) {
	nb, ok := m.notebooks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return nb.Clone(), nil
}

func (m *MockRepository) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.notebooks))
	for id := range m.notebooks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.notebooks[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.notebooks, id)
	return nil
}

func (m *MockRepository) Initialize(ctx context.Context) error { return nil }

// MockWatchRepo adds core.Watchable on top of the in-memory repository.
type MockWatchRepo struct {
	*MockRepository
	UpstreamCh chan core.Event
}

func (m *MockWatchRepo) Watch(ctx context.Context) (<-chan core.Event, error) {
	return m.UpstreamCh, nil
}

func TestService_CRUD(t *testing.T) {
	service := core.NewService(NewMockRepository())
	ctx := context.TODO()

	nb := core.NewNotebook()
	nb.Cells[0].Source = core.Text("print('hi')")
	require.NoError(t, service.SaveNotebook(ctx, "analysis", nb))

	got, err := service.GetNotebook(ctx, "analysis")
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", got.Cells[0].Source.Text)

	require.NoError(t, service.SaveNotebook(ctx, "draft", core.NewNotebook()))
	ids, err := service.ListNotebooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"analysis", "draft"}, ids)

	require.NoError(t, service.DeleteNotebook(ctx, "analysis"))
	_, err = service.GetNotebook(ctx, "analysis")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_ValidatesID(t *testing.T) {
	service := core.NewService(NewMockRepository())
	ctx := context.TODO()

	assert.ErrorIs(t, service.SaveNotebook(ctx, " ", core.NewNotebook()), core.ErrInvalidID)
	_, err := service.GetNotebook(ctx, "")
	assert.ErrorIs(t, err, core.ErrInvalidID)
	assert.ErrorIs(t, service.DeleteNotebook(ctx, ""), core.ErrInvalidID)
	assert.Error(t, service.SaveNotebook(ctx, "x", nil))
}

func TestService_CreateNotebook(t *testing.T) {
	service := core.NewService(NewMockRepository())
	ctx := context.TODO()

	nb, err := service.CreateNotebook(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, core.NewNotebook(), nb)

	stored, err := service.GetNotebook(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, core.NewNotebook(), stored)

	_, err = service.CreateNotebook(ctx, "fresh")
	assert.ErrorIs(t, err, core.ErrExists)
}

func TestService_Watch_Unsupported(t *testing.T) {
	service := core.NewService(NewMockRepository())

	_, err := service.Watch(context.TODO())
	require.Error(t, err)
	assert.Equal(t, "repository does not support watching", err.Error())
}

func TestService_Watch_Decoupling(t *testing.T) {
	// Unbuffered upstream: every send blocks unless the service is draining it.
	repo := &MockWatchRepo{
		MockRepository: NewMockRepository(),
		UpstreamCh:     make(chan core.Event),
	}

	service := core.NewService(repo, core.WithEventBufferSize(10))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := service.Watch(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			select {
			case repo.UpstreamCh <- core.Event{Type: core.EventModify, ID: "nb"}:
			case <-time.After(time.Second):
				t.Error("producer blocked (service is not decoupling)")
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for producer")
	}

	count := 0
	timeout := time.After(time.Second)
	for i := 0; i < 5; i++ {
		select {
		case e := <-stream:
			assert.Equal(t, "MODIFY nb", e.String())
			count++
		case <-timeout:
			t.Fatal("failed to read buffered events")
		}
	}
	assert.Equal(t, 5, count)

	state, ok := service.State().(core.ServiceState)
	require.True(t, ok)
	assert.Equal(t, 10, state.EventBufferSize)
	assert.Equal(t, "repository", state.RepositoryType)
	assert.Equal(t, []string{"watch"}, state.Capabilities)
	assert.Nil(t, state.Repository)
	assert.Equal(t, "service", service.ComponentType())
}

func TestService_Watch_ClosesOnUpstreamClose(t *testing.T) {
	repo := &MockWatchRepo{
		MockRepository: NewMockRepository(),
		UpstreamCh:     make(chan core.Event),
	}
	service := core.NewService(repo)

	stream, err := service.Watch(context.Background())
	require.NoError(t, err)
	close(repo.UpstreamCh)

	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream was not closed")
	}
}

func TestErrors(t *testing.T) {
	parseErr := &core.ParseError{Err: errors.New("unexpected end of JSON input")}
	assert.ErrorIs(t, parseErr, core.ErrParse)
	assert.Contains(t, parseErr.Error(), "unexpected end of JSON input")

	shapeErr := &core.ShapeError{Path: "cells[1].source", Kind: core.KindOther}
	assert.ErrorIs(t, shapeErr, core.ErrShape)
	assert.Equal(t, "unexpected multiline shape at cells[1].source: got other", shapeErr.Error())
}
