package items

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "auth_api/internal/lib/logger"
	"auth_api/internal/models"
	"auth_api/internal/storage"
)

var ErrItemNotFound = errors.New("item not found")

type Storage interface {
	CreateItem(ctx context.Context, name string) (models.Item, error)
	Item(ctx context.Context, id int64) (models.Item, error)
	Items(ctx context.Context) ([]models.Item, error)
	UpdateItem(ctx context.Context, id int64, name string) (models.Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

type Service struct {
	log     *slog.Logger
	storage Storage
}

func New(log *slog.Logger, storage Storage) *Service {
	return &Service{
		log:     log,
		storage: storage,
	}
}

func (s *Service) Create(ctx context.Context, name string) (models.Item, error) {
	const op = "items.Create"

	it, err := s.storage.CreateItem(ctx, name)
	if err != nil {
		s.log.Error("failed to create item", slog.String("op", op), sl.Err(err))
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	return it, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.Item, error) {
	const op = "items.Get"

	it, err := s.storage.Item(ctx, id)
	if err != nil {
		return models.Item{}, s.wrap(op, err)
	}

	return it, nil
}

func (s *Service) List(ctx context.Context) ([]models.Item, error) {
	const op = "items.List"

	list, err := s.storage.Items(ctx)
	if err != nil {
		s.log.Error("failed to list items", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (s *Service) Update(ctx context.Context, id int64, name string) (models.Item, error) {
	const op = "items.Update"

	it, err := s.storage.UpdateItem(ctx, id, name)
	if err != nil {
		return models.Item{}, s.wrap(op, err)
	}

	return it, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "items.Delete"

	if err := s.storage.DeleteItem(ctx, id); err != nil {
		return s.wrap(op, err)
	}

	return nil
}

func (s *Service) wrap(op string, err error) error {
	if errors.Is(err, storage.ErrItemNotFound) {
		return ErrItemNotFound
	}

	s.log.Error("item storage failure", slog.String("op", op), sl.Err(err))

	return fmt.Errorf("%s: %w", op, err)
}
