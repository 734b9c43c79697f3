//go:generate go run go.uber.org/mock/mockgen -source=company_repository.go -destination=../mocks/mock_company_repository.go -package=mocks
package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

// CompanyRepository reads companies.
type CompanyRepository interface {
	List(ctx context.Context) ([]domain.Company, error)
	GetByID(ctx context.Context, id string) (*domain.Company, error)
}

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository constructs repository.
func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

func (r *companyRepository) List(ctx context.Context) ([]domain.Company, error) {
	const query = `SELECT id, name FROM companies ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Company
	for rows.Next() {
		var company domain.Company
		if err := rows.Scan(&company.ID, &company.Name); err != nil {
			return nil, err
		}
		result = append(result, company)
	}
	return result, rows.Err()
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	const query = `SELECT id, name FROM companies WHERE id=$1`
	var company domain.Company
	if err := r.pool.QueryRow(ctx, query, id).Scan(&company.ID, &company.Name); err != nil {
		return nil, err
	}
	return &company, nil
}
