package repository

import (
	"context"

	"github.com/nathan7836/sportsant-api/internal/models"
)

type ServiceRepository struct {
	db DBTX
}

func NewServiceRepository(db DBTX) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) GetByID(ctx context.Context, id int64) (*models.Service, error) {
	query := `
		SELECT id, name, price, duration_min, created_at
		FROM services
		WHERE id = $1
	`
	var service models.Service
	err := r.db.QueryRow(ctx, query, id).
		Scan(&service.ID, &service.Name, &service.Price, &service.DurationMinutes, &service.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *ServiceRepository) List(ctx context.Context) ([]models.Service, error) {
	query := `
		SELECT id, name, price, duration_min, created_at
		FROM services
		ORDER BY name ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make([]models.Service, 0)
	for rows.Next() {
		var service models.Service
		if err := rows.Scan(&service.ID, &service.Name, &service.Price, &service.DurationMinutes, &service.CreatedAt); err != nil {
			return nil, err
		}
		services = append(services, service)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return services, nil
}
