package repository

import (
	"context"

	"github.com/nathan7836/sportsant-api/internal/models"
)

type ClientRepository struct {
	db DBTX
}

func NewClientRepository(db DBTX) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	query := `
		SELECT id, full_name, email, phone, created_at
		FROM clients
		WHERE id = $1
	`
	var client models.Client
	err := r.db.QueryRow(ctx, query, id).
		Scan(&client.ID, &client.FullName, &client.Email, &client.Phone, &client.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) List(ctx context.Context) ([]models.Client, error) {
	query := `
		SELECT id, full_name, email, phone, created_at
		FROM clients
		ORDER BY full_name ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]models.Client, 0)
	for rows.Next() {
		var client models.Client
		if err := rows.Scan(&client.ID, &client.FullName, &client.Email, &client.Phone, &client.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return clients, nil
}
