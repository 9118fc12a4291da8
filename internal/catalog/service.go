package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sellergrid/service-core-go/internal/authz"
	"github.com/sellergrid/service-core-go/internal/catalog/entity"
	"github.com/sellergrid/service-core-go/internal/result"
	"github.com/sellergrid/service-core-go/pkg/utilities"
)

// Store is the persistence boundary for products. Lookups return (nil, nil)
// when no row matches.
type Store interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetAll(ctx context.Context) ([]*entity.Product, error)
	GetByOwner(ctx context.Context, ownerID string) ([]*entity.Product, error)
	ExistsForOwner(ctx context.Context, ownerID, name, description string) (bool, error)
	Add(ctx context.Context, p *entity.Product) error
	Update(ctx context.Context, p *entity.Product) error
	Delete(ctx context.Context, id string) error
}

const (
	msgProductNotFound  = "product not found"
	msgDuplicateProduct = "product with this name and description already exists"
	msgInternal         = "internal error"
)

// Service implements product CRUD. Mutations run the ownership check before
// touching the store, so an unauthorized request never causes a partial
// write.
type Service struct {
	store  Store
	logger *zap.SugaredLogger
}

func NewService(store Store, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, logger: logger}
}

// ProductInput carries the caller-supplied product fields.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Available   bool
}

// List returns every product.
func (s *Service) List(ctx context.Context) result.Result[[]*entity.Product] {
	rows, err := s.store.GetAll(ctx)
	if err != nil {
		return internalFailure[[]*entity.Product](s.logger, "list products", err)
	}
	return result.Success(rows)
}

// GetByID returns one product.
func (s *Service) GetByID(ctx context.Context, id string) result.Result[*entity.Product] {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return internalFailure[*entity.Product](s.logger, "get product", err)
	}
	if p == nil {
		return result.Failure[*entity.Product](result.KindNotFound, msgProductNotFound)
	}
	return result.Success(p)
}

// ListByOwner returns the products owned by one identity.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) result.Result[[]*entity.Product] {
	rows, err := s.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return internalFailure[[]*entity.Product](s.logger, "list products by owner", err)
	}
	return result.Success(rows)
}

// Add creates a product owned by the requester. The same owner cannot hold
// two products with identical name and description.
func (s *Service) Add(ctx context.Context, in ProductInput, ownerID string) result.Result[*entity.Product] {
	name := strings.TrimSpace(in.Name)
	exists, err := s.store.ExistsForOwner(ctx, ownerID, name, in.Description)
	if err != nil {
		return internalFailure[*entity.Product](s.logger, "probe product", err)
	}
	if exists {
		return result.Failure[*entity.Product](result.KindDuplicateResource, msgDuplicateProduct)
	}

	p := &entity.Product{
		ID:          utilities.NewSnowflakeID(),
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		Available:   in.Available,
		OwnerID:     ownerID,
	}
	if err := s.store.Add(ctx, p); err != nil {
		return internalFailure[*entity.Product](s.logger, "insert product", err)
	}
	return result.Success(p)
}

// Update replaces the mutable fields of a product, requester must own it.
func (s *Service) Update(ctx context.Context, id string, in ProductInput, requesterID string) result.Result[bool] {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return internalFailure[bool](s.logger, "get product", err)
	}
	if p == nil {
		return result.Failure[bool](result.KindNotFound, msgProductNotFound)
	}
	if guard := authz.AuthorizeOwner(p.OwnerID, requesterID); !guard.OK() {
		return result.Failure[bool](guard.Kind(), guard.Message())
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Available = in.Available
	if err := s.store.Update(ctx, p); err != nil {
		return internalFailure[bool](s.logger, "update product", err)
	}
	return result.Success(true)
}

// Delete removes a product, requester must own it.
func (s *Service) Delete(ctx context.Context, id, requesterID string) result.Result[bool] {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return internalFailure[bool](s.logger, "get product", err)
	}
	if p == nil {
		return result.Failure[bool](result.KindNotFound, msgProductNotFound)
	}
	if guard := authz.AuthorizeOwner(p.OwnerID, requesterID); !guard.OK() {
		return result.Failure[bool](guard.Kind(), guard.Message())
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return internalFailure[bool](s.logger, "delete product", err)
	}
	return result.Success(true)
}

// internalFailure logs an infrastructure error and converts it into the
// uniform internal failure.
func internalFailure[T any](logger *zap.SugaredLogger, op string, err error) result.Result[T] {
	logger.Errorw(op, "err", err)
	return result.Failure[T](result.KindStoreUnavailable, msgInternal)
}
