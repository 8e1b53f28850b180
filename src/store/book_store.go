package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/ledgerlens/backend/src/models"
	"github.com/username/ledgerlens/backend/src/services"
)

const clientBookColumns = `id, name, currency, fiscal_year_end, status, codat_company_id, codat_connection_id, organization_id, created_at, created_by, updated_by`

func scanClientBook(row interface{ Scan(...any) error }) (*models.ClientBook, error) {
	var book models.ClientBook
	var companyID, connectionID, createdBy, updatedBy sql.NullString
	err := row.Scan(&book.ID, &book.Name, &book.Currency, &book.FiscalYearEnd, &book.Status,
		&companyID, &connectionID, &book.OrganizationID, &book.CreatedAt, &createdBy, &updatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning client book: %w", err)
	}
	book.CodatCompanyID = companyID.String
	book.CodatConnectionID = connectionID.String
	book.CreatedBy = createdBy.String
	book.UpdatedBy = updatedBy.String
	return &book, nil
}

func (s *SQLStore) GetClientBook(ctx context.Context, id string) (*models.ClientBook, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientBookColumns+` FROM client_books WHERE id = ?`, id)
	return scanClientBook(row)
}

func (s *SQLStore) GetClientBookByConnection(ctx context.Context, connectionID string) (*models.ClientBook, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientBookColumns+` FROM client_books WHERE codat_connection_id = ?`, connectionID)
	return scanClientBook(row)
}

func (s *SQLStore) ListClientBooks(ctx context.Context) ([]models.ClientBook, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientBookColumns+` FROM client_books ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying client books: %w", err)
	}
	defer rows.Close()

	var books []models.ClientBook
	for rows.Next() {
		book, err := scanClientBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

func (s *SQLStore) CreateClientBook(ctx context.Context, book models.ClientBook, transactions []models.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning client book insert: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO client_books
			(id, name, currency, fiscal_year_end, status, codat_company_id, codat_connection_id, organization_id, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.Name, book.Currency, book.FiscalYearEnd.UTC(), book.Status,
		nullable(book.CodatCompanyID), nullable(book.CodatConnectionID),
		book.OrganizationID, book.CreatedBy, book.UpdatedBy)
	if err != nil {
		return fmt.Errorf("inserting client book: %w", err)
	}

	if len(transactions) > 0 {
		stmt, err := dbTx.PrepareContext(ctx, `
			INSERT INTO transactions
				(id, client_book_id, date, description, amount, type, reference, category_id, created_by, updated_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing transaction insert: %w", err)
		}
		defer stmt.Close()

		for _, tx := range transactions {
			if _, err := stmt.ExecContext(ctx, tx.ID, book.ID, tx.Date.UTC(), tx.Description,
				tx.Amount.String(), tx.Type, nullable(tx.Reference), nullable(tx.CategoryID),
				tx.CreatedBy, tx.UpdatedBy); err != nil {
				return fmt.Errorf("inserting uploaded transaction: %w", err)
			}
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing client book insert: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteClientBook(ctx context.Context, id string) error {
	// Foreign keys cascade to transactions, flags, deductions and reports.
	result, err := s.db.ExecContext(ctx, `DELETE FROM client_books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting client book %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return services.ErrBookNotFound
	}
	return nil
}

func (s *SQLStore) SetClientBookConnection(ctx context.Context, id, companyID, connectionID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE client_books
		SET codat_company_id = ?, codat_connection_id = ?, updated_by = 'codat-connect'
		WHERE id = ?`,
		nullable(companyID), nullable(connectionID), id)
	if err != nil {
		return fmt.Errorf("linking client book %s to connection: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return services.ErrBookNotFound
	}
	return nil
}

func (s *SQLStore) DeleteTaxDeductionsByCreator(ctx context.Context, clientBookID, createdBy string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM tax_deductions WHERE client_book_id = ? AND created_by = ?`,
		clientBookID, createdBy)
	if err != nil {
		return fmt.Errorf("deleting tax deductions: %w", err)
	}
	return nil
}

func (s *SQLStore) CreateTaxDeduction(ctx context.Context, deduction models.TaxDeduction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tax_deductions
			(id, name, description, amount, tax_year, eligible, client_book_id, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deduction.ID, deduction.Name, deduction.Description, deduction.Amount.String(),
		deduction.TaxYear, deduction.Eligible, deduction.ClientBookID,
		deduction.CreatedBy, deduction.UpdatedBy)
	if err != nil {
		return fmt.Errorf("inserting tax deduction: %w", err)
	}
	return nil
}

func (s *SQLStore) CreateMonthEndReport(ctx context.Context, report models.MonthEndReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO month_end_reports
			(id, title, period, status, revenue, expenses, net_income, client_book_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Title, report.Period, report.Status,
		report.Revenue.String(), report.Expenses.String(), report.NetIncome.String(),
		report.ClientBookID)
	if err != nil {
		return fmt.Errorf("inserting month-end report: %w", err)
	}
	return nil
}
